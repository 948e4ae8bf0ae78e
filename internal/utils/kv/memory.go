package kv

import (
	"context"
	"sync"
)

type memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// Memory keeps values in process; used when no external store is configured and in tests.
func Memory() Store {
	return &memory{data: make(map[string][]byte)}
}

func (m *memory) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}
