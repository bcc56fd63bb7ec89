// Package main seeds a running catalog service with variants and products
// through its HTTP API, so every row goes through the same validation,
// storage and event path as real traffic.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strconv"
	"time"

	"github.com/utafrali/product-catalog/internal/auth"
	"github.com/utafrali/product-catalog/internal/domain"
	apperrors "github.com/utafrali/product-catalog/pkg/errors"
	"github.com/utafrali/product-catalog/pkg/httpclient"
	"github.com/utafrali/product-catalog/pkg/logger"
	"github.com/utafrali/product-catalog/pkg/slug"
)

// --------------------------------------------------------------------------
// Configuration helpers
// --------------------------------------------------------------------------

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// --------------------------------------------------------------------------
// HTTP helpers
// --------------------------------------------------------------------------

type client struct {
	base  string
	token string
	http  *httpclient.CircuitBreakerClient
}

func (c *client) do(ctx context.Context, method, path, contentType string, body io.Reader) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, httpclient.ParseResponseError(resp, "catalog")
	}
	defer resp.Body.Close()

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return result, nil
}

// --------------------------------------------------------------------------
// Seed data definitions
// --------------------------------------------------------------------------

type productDef struct {
	title       string
	description string
	price       string
	options     map[string][]string // variant title -> tags
}

var variantTitles = []string{"Color", "Size", "Material"}

var products = []productDef{
	{"Classic Cotton T-Shirt", "Everyday tee made from organic cotton with a relaxed fit.", "24.99",
		map[string][]string{"Color": {"White", "Black", "Navy"}, "Size": {"S", "M", "L", "XL"}}},
	{"Slim Fit Jeans", "Slim denim with stretch for all-day comfort.", "49.99",
		map[string][]string{"Color": {"Indigo", "Black"}, "Size": {"30", "32", "34"}}},
	{"Wool Sweater", "Merino pullover with ribbed cuffs and hem.", "59.99",
		map[string][]string{"Color": {"Grey", "Red"}, "Material": {"Merino"}}},
	{"Rain Jacket", "Waterproof jacket with sealed seams and adjustable hood.", "79.99",
		map[string][]string{"Color": {"Yellow", "Navy"}, "Size": {"M", "L"}}},
	{"Running Shoes", "Lightweight running shoes with responsive cushioning.", "89.99",
		map[string][]string{"Color": {"Blue", "Black"}, "Size": {"42", "43", "44"}}},
	{"Yoga Mat", "Non-slip 6mm exercise mat with carry strap.", "29.99",
		map[string][]string{"Color": {"Purple", "Green"}, "Material": {"TPE"}}},
	{"Cast Iron Skillet", "Pre-seasoned 12-inch skillet, oven safe.", "34.99", nil},
	{"Insulated Water Bottle", "Keeps drinks cold 24 hours or hot 12 hours.", "24.99",
		map[string][]string{"Color": {"Silver", "Black", "Blue"}}},
}

// --------------------------------------------------------------------------
// main
// --------------------------------------------------------------------------

func main() {
	log.SetFlags(log.Ltime | log.Lmsgprefix)
	log.SetPrefix("[seed] ")

	slogger := logger.New("catalog-seed", getEnv("LOG_LEVEL", "info"))
	c := &client{
		base: getEnv("CATALOG_URL", "http://localhost:8001"),
		http: httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("catalog-api"),
			slogger,
		),
	}

	if secret := os.Getenv("AUTH_JWT_SECRET"); secret != "" {
		token, err := auth.NewJWTVerifier(secret, getEnv("AUTH_JWT_ISSUER", "")).
			Sign("seed", "seed@catalog.test", auth.RoleAdmin, time.Hour)
		if err != nil {
			log.Fatalf("sign token: %v", err)
		}
		c.token = token
		log.Println("Signed an admin token from AUTH_JWT_SECRET.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// ---------------------------------------------------------------
	// 1. Seed variants
	// ---------------------------------------------------------------
	log.Println("Seeding variants...")
	variantIDs, err := seedVariants(ctx, c)
	if err != nil {
		log.Fatalf("seed variants: %v", err)
	}

	// ---------------------------------------------------------------
	// 2. Seed products with option groups and one image each
	// ---------------------------------------------------------------
	log.Printf("Seeding %d products via %s ...", len(products), c.base)
	created := 0
	for i, p := range products {
		sku := fmt.Sprintf("SEED-%03d-%s", i+1, slug.Generate(p.title))
		id, err := createProduct(ctx, c, p, sku, variantIDs)
		switch {
		case errors.Is(err, apperrors.ErrAlreadyExists):
			log.Printf("  Product: %s exists (sku=%s)", p.title, sku)
			continue
		case errors.Is(err, httpclient.ErrCircuitOpen):
			log.Fatalf("catalog unavailable, giving up: %v", err)
		case err != nil:
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) && len(appErr.Fields) > 0 {
				log.Printf("  WARNING: product %q: %s %v", p.title, appErr.Message, appErr.Fields)
			} else {
				log.Printf("  WARNING: product %q: %v", p.title, err)
			}
			continue
		}
		created++
		log.Printf("  Product: %s (id=%s sku=%s)", p.title, id, sku)
	}

	log.Printf("Done: %d of %d products created.", created, len(products))
}

// seedVariants creates the variant types that do not exist yet and returns
// the id of every one by title.
func seedVariants(ctx context.Context, c *client) (map[string]string, error) {
	existing, err := c.do(ctx, http.MethodGet, "/api/v1/variants", "", nil)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]string)
	if list, ok := existing["data"].([]any); ok {
		for _, item := range list {
			v, _ := item.(map[string]any)
			title, _ := v["title"].(string)
			id, _ := v["id"].(string)
			ids[title] = id
		}
	}

	for _, title := range variantTitles {
		if id, ok := ids[title]; ok {
			log.Printf("  Variant: %s exists (id=%s)", title, id)
			continue
		}
		body, _ := json.Marshal(map[string]any{"title": title})
		resp, err := c.do(ctx, http.MethodPost, "/api/v1/variants", "application/json", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create variant %q: %w", title, err)
		}
		data, _ := resp["data"].(map[string]any)
		id, _ := data["id"].(string)
		ids[title] = id
		log.Printf("  Variant: %s (id=%s)", title, id)
	}
	return ids, nil
}

func createProduct(ctx context.Context, c *client, p productDef, sku string, variantIDs map[string]string) (string, error) {
	groups := make([]domain.OptionGroup, 0, len(p.options))
	for _, title := range variantTitles {
		tags, ok := p.options[title]
		if !ok {
			continue
		}
		groups = append(groups, domain.OptionGroup{Option: variantIDs[title], Tags: tags})
	}
	groupsJSON, err := json.Marshal(groups)
	if err != nil {
		return "", fmt.Errorf("marshal groups: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"title":       p.title,
		"sku":         sku,
		"description": p.description,
		"price":       p.price,
		"stock":       strconv.Itoa(5 + rand.Intn(50)),
		"variants":    string(groupsJSON),
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return "", err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file_path"; filename="%s.png"`, slug.Generate(p.title)))
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if err := png.Encode(part, swatch()); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/v1/products", mw.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}
	data, _ := resp["data"].(map[string]any)
	id, _ := data["id"].(string)
	return id, nil
}

// swatch renders a small single-colour placeholder image.
func swatch() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	fill := color.RGBA{R: uint8(rand.Intn(256)), G: uint8(rand.Intn(256)), B: uint8(rand.Intn(256)), A: 255}
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, fill)
		}
	}
	return img
}
