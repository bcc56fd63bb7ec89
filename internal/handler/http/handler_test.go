package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/utafrali/product-catalog/internal/auth"
	"github.com/utafrali/product-catalog/internal/cache"
	"github.com/utafrali/product-catalog/internal/domain"
	"github.com/utafrali/product-catalog/internal/event"
	"github.com/utafrali/product-catalog/internal/repository/memory"
	"github.com/utafrali/product-catalog/internal/service"
	memstorage "github.com/utafrali/product-catalog/internal/storage/memory"
	"github.com/utafrali/product-catalog/pkg/health"
	"github.com/utafrali/product-catalog/pkg/logger"
	"github.com/utafrali/product-catalog/pkg/middleware"
)

// ============================================================================
// Test helpers
// ============================================================================

const testSecret = "handler-test-secret"

type testServer struct {
	store    *memory.Store
	files    *memstorage.Storage
	products *service.ProductService
	variants *service.VariantService
	verifier *auth.JWTVerifier
	router   http.Handler
}

func newTestServer(t *testing.T, withAuth bool) *testServer {
	t.Helper()
	log := logger.Discard()

	s := &testServer{
		store:    memory.NewStore(),
		files:    memstorage.New("http://media.test"),
		verifier: auth.NewJWTVerifier(testSecret, ""),
	}
	c := cache.NewMemory()
	producer := event.NewProducer(event.NopPublisher{}, log)
	s.products = service.NewProductService(s.store, s.files, c, producer,
		service.ProductOptions{Policy: domain.PolicyPerTag, PageSize: 2, CacheTTL: time.Minute}, log)
	s.variants = service.NewVariantService(s.store, c, time.Minute, log)

	cfg := RouterConfig{
		ServiceName:    "product-catalog-test",
		CORS:           middleware.DefaultCORSConfig(),
		MaxUploadBytes: 1 << 20,
		FormCacheTTL:   time.Minute,
		Media:          s.files,
	}
	if withAuth {
		cfg.TokenValidator = s.verifier.Validate
	}
	s.router = NewRouter(s.products, s.variants, health.NewHandler(), cfg, log)
	return s
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) token(t *testing.T, role string) string {
	t.Helper()
	tok, err := s.verifier.Sign("user-1", "admin@example.com", role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) variant(t *testing.T, title string) string {
	t.Helper()
	v, err := s.variants.CreateVariant(context.Background(), &service.CreateVariantInput{Title: title})
	require.NoError(t, err)
	return v.ID
}

type filePart struct {
	name        string
	contentType string
	body        []byte
}

// multipartRequest builds a multipart product form request.
func multipartRequest(t *testing.T, method, target string, fields map[string]string, files ...filePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file_path"; filename="`+f.name+`"`)
		if f.contentType != "" {
			h.Set("Content-Type", f.contentType)
		}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", contentTypeURLEncoded)
	return req
}

// pngBytes is a minimal PNG signature, enough for content sniffing.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.Nil(t, env.Error, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dst))
}
