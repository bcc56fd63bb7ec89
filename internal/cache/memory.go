package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// Memory is a process-local Cache. Values are stored JSON encoded so callers
// never share memory with the cache.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(e.data, dst); err != nil {
		return false, fmt.Errorf("unmarshal cached %s: %w", key, err)
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cached %s: %w", key, err)
	}

	e := memoryEntry{data: data}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	if e, ok := m.entries[key]; ok {
		if err := json.Unmarshal(e.data, &n); err != nil {
			return 0, fmt.Errorf("incr %s: %w", key, err)
		}
	}
	n++
	m.entries[key] = memoryEntry{data: []byte(strconv.FormatInt(n, 10))}
	return n, nil
}
