package slug

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// foldAccents maps common Latin accented letters to ASCII.
var foldAccents = strings.NewReplacer(
	"à", "a", "á", "a", "â", "a", "ã", "a", "ä", "a", "å", "a",
	"ç", "c", "è", "e", "é", "e", "ê", "e", "ë", "e",
	"ì", "i", "í", "i", "î", "i", "ï", "i", "ı", "i",
	"ñ", "n", "ò", "o", "ó", "o", "ô", "o", "õ", "o", "ö", "o", "ø", "o",
	"ù", "u", "ú", "u", "û", "u", "ü", "u", "ý", "y", "ÿ", "y",
	"ğ", "g", "ş", "s", "ß", "ss",
)

// MaxLength bounds generated slugs so they stay usable as path segments.
const MaxLength = 64

// Generate creates a URL and object-key friendly slug. Letters are lowered
// and folded to ASCII, every other run of characters becomes one hyphen.
//
//	"Cotton T-Shirt (Red)" → "cotton-t-shirt-red"
//	"Café Crème"           → "cafe-creme"
func Generate(name string) string {
	s := foldAccents.Replace(strings.ToLower(strings.TrimSpace(name)))
	s = strings.Trim(nonAlnum.ReplaceAllString(s, "-"), "-")
	if len(s) > MaxLength {
		s = strings.TrimRight(s[:MaxLength], "-")
	}
	return s
}

// GenerateOr returns Generate(name), or fallback when name has no usable
// characters.
func GenerateOr(name, fallback string) string {
	if s := Generate(name); s != "" {
		return s
	}
	return fallback
}
