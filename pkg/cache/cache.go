package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service defines cache operations. Values are JSON encoded, except strings
// which are stored verbatim.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
}

// GetTyped fetches key into a new T. ok is false on a miss.
func GetTyped[T any](ctx context.Context, c Service, key string) (v T, ok bool, err error) {
	err = c.Get(ctx, key, &v)
	if errors.Is(err, ErrCacheMiss) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	return v, true, nil
}
