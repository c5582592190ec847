package cache

import (
	"context"
	"time"
)

// ProductsKey holds the cached product list.
const ProductsKey = "products"

// DefaultTTL is how long a cached entry lives.
const DefaultTTL = 60 * time.Second

// Cache is a key/value store with a fixed time to live per entry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
