package memory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/product-catalog/internal/storage"
)

func upload(s *Storage, key, body string) (*storage.UploadResult, error) {
	return s.Upload(context.Background(), &storage.UploadInput{
		Key:         key,
		ContentType: "image/png",
		Size:        int64(len(body)),
		Data:        strings.NewReader(body),
	})
}

func TestStorage_UploadGetDelete(t *testing.T) {
	ctx := context.Background()
	s := New("http://localhost:8001/media/")

	res, err := upload(s, "products/a/1.png", "png-bytes")
	require.NoError(t, err)
	assert.Equal(t, "products/a/1.png", res.Key)
	assert.Equal(t, "http://localhost:8001/media/products/a/1.png", res.URL)

	data, ok := s.Object("products/a/1.png")
	require.True(t, ok)
	assert.Equal(t, "png-bytes", string(data))

	url, err := s.GetURL(ctx, "products/a/1.png")
	require.NoError(t, err)
	assert.Equal(t, res.URL, url)

	require.NoError(t, s.Delete(ctx, "products/a/1.png"))
	assert.Empty(t, s.Keys())
	assert.Error(t, s.Delete(ctx, "products/a/1.png"))

	_, err = s.GetURL(ctx, "missing")
	assert.Error(t, err)
}

func TestStorage_FailUploadsAfter(t *testing.T) {
	s := New("")
	s.FailUploadsAfter(1)

	_, err := upload(s, "a", "1")
	require.NoError(t, err)
	_, err = upload(s, "b", "2")
	require.Error(t, err)

	assert.Equal(t, []string{"a"}, s.Keys())
}

func TestStorage_ServeHTTP(t *testing.T) {
	s := New("http://localhost:8001/media")
	_, err := upload(s, "products/a/1.txt", "hello")
	require.NoError(t, err)
	h := http.StripPrefix("/media", s)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/products/a/1.txt", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/products/a/2.txt", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/media/products/a/1.txt", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
