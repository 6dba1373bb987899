// Package dedup remembers which offer ids have already been announced.
// Every backend is append-only: ids are never evicted.
package dedup

import (
	"context"
	"fmt"

	"github.com/dealmungchi/freegameworker/config"
)

// Store is the persistent set of announced offer ids
type Store interface {
	// Contains reports whether id has been announced
	Contains(ctx context.Context, id string) (bool, error)

	// AddAll records ids as announced. Adding a known id is a no-op.
	AddAll(ctx context.Context, ids []string) error

	// Close releases the backend
	Close() error
}

// Open creates the backend selected by DEDUP_BACKEND
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.DedupBackend {
	case config.DedupBackendFile, "":
		return NewFileStore(cfg.PostedFile)
	case config.DedupBackendSQLite:
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	case config.DedupBackendRedis:
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisDedupKey)
	case config.DedupBackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown dedup backend %q", cfg.DedupBackend)
	}
}
