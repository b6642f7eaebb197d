// Package memory provides an in-memory key-value store, used by tests and as
// the degraded fallback when durable storage is unavailable.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/tessera-ide/tessera/internal/application/port"
)

// KV is a port.KeyValue held entirely in memory.
type KV struct {
	mu    sync.RWMutex
	data  map[string][]byte
	quota int64

	// FailWrites makes Set return port.ErrStorageUnavailable, simulating
	// quota exhaustion in tests.
	FailWrites bool
}

var _ port.KeyValue = (*KV)(nil)

// New creates an empty in-memory store. quota zero means unbounded.
func New(quota int64) *KV {
	return &KV{data: make(map[string][]byte), quota: quota}
}

// Get implements port.KeyValue.
func (s *KV) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Set implements port.KeyValue.
func (s *KV) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return port.ErrStorageUnavailable
	}
	s.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete implements port.KeyValue.
func (s *KV) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Keys implements port.KeyValue.
func (s *KV) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Usage implements port.KeyValue.
func (s *KV) Usage(_ context.Context) (used, quota int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, value := range s.data {
		used += int64(len(value))
	}
	return used, s.quota, nil
}
