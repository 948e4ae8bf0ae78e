package kv

import "context"

// Store is a byte-oriented key-value store. Get returns nil, nil for an absent key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
