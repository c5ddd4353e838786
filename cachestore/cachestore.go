// Package cachestore is a small string cache with TTL, used to avoid
// re-reading user standing on every submission. Entries are purged when the
// underlying data changes (eg, a warning is issued).
package cachestore

import (
	"context"
)

type CacheStore interface {
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
}
