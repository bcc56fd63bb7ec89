// Package memory keeps uploaded objects in process memory, for local runs
// and tests.
package memory

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/utafrali/product-catalog/internal/storage"
)

// Storage implements storage.Storage using an in-memory map.
type Storage struct {
	mu      sync.RWMutex
	files   map[string][]byte
	baseURL string

	// failAfter counts uploads left before Upload starts failing. Negative
	// never fails.
	failAfter int
}

// New creates a new in-memory storage instance serving URLs under baseURL.
func New(baseURL string) *Storage {
	return &Storage{
		files:     make(map[string][]byte),
		baseURL:   strings.TrimRight(baseURL, "/"),
		failAfter: -1,
	}
}

// FailUploadsAfter makes uploads fail once n more have succeeded.
func (s *Storage) FailUploadsAfter(n int) {
	s.mu.Lock()
	s.failAfter = n
	s.mu.Unlock()
}

// Upload reads the whole object into memory.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	data, err := io.ReadAll(input.Data)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", input.Key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.failAfter == 0:
		return nil, fmt.Errorf("upload %s: storage unavailable", input.Key)
	case s.failAfter > 0:
		s.failAfter--
	}

	s.files[input.Key] = data
	return &storage.UploadResult{Key: input.Key, URL: s.url(input.Key)}, nil
}

// Delete removes an object.
func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[key]; !exists {
		return fmt.Errorf("file not found: %s", key)
	}
	delete(s.files, key)
	return nil
}

// GetURL returns the URL for the given key.
func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.files[key]; !exists {
		return "", fmt.Errorf("file not found: %s", key)
	}
	return s.url(key), nil
}

// Keys returns the stored keys, sorted.
func (s *Storage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.files))
	for k := range s.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Object returns the bytes stored under key.
func (s *Storage) Object(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[key]
	return data, ok
}

// ServeHTTP serves the object named by the request path, so local runs can
// resolve the URLs GetURL hands out. Mount it behind http.StripPrefix.
func (s *Storage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	data, ok := s.Object(strings.TrimPrefix(r.URL.Path, "/"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	if r.Method == http.MethodGet {
		_, _ = w.Write(data)
	}
}

func (s *Storage) url(key string) string {
	return s.baseURL + "/" + key
}
