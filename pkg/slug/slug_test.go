package slug

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "T-Shirt", "t-shirt"},
		{"spaces and punctuation", "  Cotton T-Shirt (Red)! ", "cotton-t-shirt-red"},
		{"accents", "Café Crème", "cafe-creme"},
		{"sku", "SKU_0001/XL", "sku-0001-xl"},
		{"collapses runs", "a -- b", "a-b"},
		{"only symbols", "***", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Generate(tt.input))
		})
	}
}

func TestGenerate_TruncatesWithoutTrailingHyphen(t *testing.T) {
	in := strings.Repeat("ab ", 40)
	out := Generate(in)

	assert.LessOrEqual(t, len(out), MaxLength)
	assert.False(t, strings.HasSuffix(out, "-"))
}

func TestGenerateOr(t *testing.T) {
	assert.Equal(t, "sku-1", GenerateOr("SKU 1", "product"))
	assert.Equal(t, "product", GenerateOr("???", "product"))
}
