package kv

import (
	"context"
	"errors"

	re "github.com/redis/go-redis/v9"
)

type redis struct {
	redis *re.Client
}

// NewRedis wraps a client built by pkg/redis; key namespacing is done by the client hooks.
func NewRedis(client *re.Client) Store {
	return &redis{redis: client}
}

func (r *redis) Set(ctx context.Context, key string, value []byte) error {
	return r.redis.Set(ctx, key, value, 0).Err()
}

func (r *redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.redis.Get(ctx, key).Bytes()
	if errors.Is(err, re.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return val, nil
}
