package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/product-catalog/pkg/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body struct {
		Error map[string]string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

// --- Auth ---

func staticValidator(token string, claims *Claims) TokenValidator {
	return func(got string) (*Claims, error) {
		if got != token {
			return nil, errors.New("bad token")
		}
		return claims, nil
	}
}

func TestAuth_MissingHeader(t *testing.T) {
	h := Auth(staticValidator("t", &Claims{}))(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/products", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeEnvelope(t, rec)["code"])
}

func TestAuth_WrongScheme(t *testing.T) {
	h := Auth(staticValidator("t", &Claims{}))(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_InvalidToken(t *testing.T) {
	h := Auth(staticValidator("good", &Claims{}))(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid or expired token", decodeEnvelope(t, rec)["message"])
}

func TestAuth_ValidTokenThenRequireRole(t *testing.T) {
	var gotUser, gotRole, gotLogUser string
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		gotLogUser = logger.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
	})
	h := Auth(staticValidator("good", &Claims{UserID: "u-1", Role: "admin"}))(RequireRole("admin")(final))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "u-1", gotUser)
	assert.Equal(t, "admin", gotRole)
	assert.Equal(t, "u-1", gotLogUser)
}

func TestRequireRole_Forbidden(t *testing.T) {
	h := Auth(staticValidator("good", &Claims{UserID: "u-2", Role: "viewer"}))(RequireRole("admin")(okHandler()))

	req := httptest.NewRequest(http.MethodPut, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decodeEnvelope(t, rec)["code"])
}

// --- Recovery ---

func TestRecovery_ReturnsEnvelope(t *testing.T) {
	var buf bytes.Buffer
	h := Recovery(logger.NewWithWriter("product-catalog", "info", &buf))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") }),
	)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeEnvelope(t, rec)["code"])
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestRecovery_RepanicsAbortHandler(t *testing.T) {
	h := Recovery(logger.Discard())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic(http.ErrAbortHandler) }),
	)

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

// --- RequestLogging / RequestLogger ---

func TestRequestLogging_GeneratesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	var seen string
	h := RequestLogging(logger.NewWithWriter("product-catalog", "info", &buf))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = logger.CorrelationIDFromContext(r.Context())
			w.WriteHeader(http.StatusTeapot)
		}),
	)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(CorrelationIDHeader))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "http request", line["msg"])
	assert.EqualValues(t, http.StatusTeapot, line["status"])
	assert.Equal(t, seen, line["correlation_id"])
}

func TestRequestLogging_KeepsIncomingCorrelationID(t *testing.T) {
	h := RequestLogging(logger.Discard())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "corr-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "corr-1", rec.Header().Get(CorrelationIDHeader))
}

func TestRequestLogging_HealthProbesAtDebug(t *testing.T) {
	var buf bytes.Buffer
	h := RequestLogging(logger.NewWithWriter("product-catalog", "info", &buf))(okHandler())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Empty(t, buf.String())
}

func TestRequestLogger_EnrichesContextLogger(t *testing.T) {
	var buf bytes.Buffer
	base := logger.NewWithWriter("product-catalog", "info", &buf)

	h := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("inside")
	}))

	ctx := logger.WithCorrelationID(context.Background(), "corr-9")
	ctx = context.WithValue(ctx, userIDKey, "admin-7")
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))

	out := buf.String()
	assert.Contains(t, out, `"correlation_id":"corr-9"`)
	assert.Contains(t, out, `"user_id":"admin-7"`)
}

// --- CORS ---

func TestCORS_WildcardAnswersPreflight(t *testing.T) {
	h := CORS(DefaultCORSConfig())(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/products", nil)
	req.Header.Set("Origin", "https://shop.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
}

func TestCORS_ListedOriginEchoed(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"https://admin.example"}})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://admin.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://admin.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestCORS_UnlistedOriginGetsNoAllowOrigin(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"https://admin.example"}})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_CredentialsEchoOriginInsteadOfWildcard(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://admin.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://admin.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

// --- CacheControl ---

func TestCacheControl(t *testing.T) {
	h := CacheControl(30 * time.Second)(okHandler())

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "public, max-age=30", get.Header().Get("Cache-Control"))

	post := httptest.NewRecorder()
	h.ServeHTTP(post, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, "no-store", post.Header().Get("Cache-Control"))
}

// --- IPAllowlist / pprof ---

func TestIPAllowlist(t *testing.T) {
	h := IPAllowlist([]string{"127.0.0.0/8", "not-a-cidr"}, logger.Discard())(okHandler())

	allowed := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	allowed.RemoteAddr = "127.0.0.1:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, allowed)
	assert.Equal(t, http.StatusOK, rec.Code)

	denied := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	denied.RemoteAddr = "203.0.113.9:5555"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, denied)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decodeEnvelope(t, rec)["code"])
}

func TestRegisterPprof_ServesIndexToAllowedIP(t *testing.T) {
	r := chi.NewRouter()
	RegisterPprof(r, []string{"10.0.0.0/8"}, logger.Discard())

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "10.1.2.3:4000"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "profile"))
}

// --- statusRecorder ---

func TestStatusRecorder_FirstWriteHeaderWins(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())
	rec.WriteHeader(http.StatusNotFound)
	rec.WriteHeader(http.StatusOK)
	_, _ = rec.Write([]byte("abc"))

	assert.Equal(t, http.StatusNotFound, rec.status)
	assert.Equal(t, 3, rec.bytes)
}

func TestStatusRecorder_ImplicitOK(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())
	_, _ = rec.Write([]byte("x"))

	assert.Equal(t, http.StatusOK, rec.status)
	assert.NotNil(t, http.NewResponseController(rec))
}
