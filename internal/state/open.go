// internal/state/open.go
package state

import (
	"context"
	"fmt"
	"path/filepath"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string
	DataDir     string
	SQLitePath  string
	RedisURL    string
	RedisPrefix string
}

// Open builds the configured backend and wraps it in a Store.
func Open(ctx context.Context, opts Options) (*Store, error) {
	var (
		backend Backend
		err     error
	)
	switch opts.Backend {
	case "", BackendFile:
		backend = NewFileBackend(filepath.Join(opts.DataDir, "store"))
	case BackendMemory:
		backend = NewMemoryBackend()
	case BackendSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(opts.DataDir, "theo.db")
		}
		backend, err = NewSQLiteBackend(path)
	case BackendRedis:
		backend, err = NewRedisBackend(ctx, opts.RedisURL, opts.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return New(backend), nil
}
