package cache

import (
	"context"
	"time"
)

// Cache is the read-through cache contract used by services.
// Values are JSON-encoded by the implementation.
type Cache interface {
	// Get unmarshals the cached value into dest.
	// found=false on a miss; dest is left untouched.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores value with ttl. ttl <= 0 keeps the key until deleted.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes keys; missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	Ping(ctx context.Context) error
}
