// internal/state/store.go
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNotFound is returned by a Backend when the key has never been written.
var ErrNotFound = errors.New("key not found")

// Backend is raw string-keyed storage. Implementations overwrite on Set and
// return ErrNotFound from Get for unknown keys.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Store encodes values as JSON on top of a Backend.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

// New wraps backend in a JSON Store.
func New(backend Backend) *Store {
	return &Store{backend: backend, logger: slog.Default()}
}

// Backend returns the underlying raw storage.
func (s *Store) Backend() Backend {
	return s.backend
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Write marshals value and stores it under key, replacing any prior value.
func (s *Store) Write(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.backend.Set(ctx, key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Read decodes the value stored under key. A missing key, a backend error or
// undecodable content all yield fallback; failures are logged, never returned.
func Read[T any](ctx context.Context, s *Store, key string, fallback T) T {
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("store read failed, using fallback", "key", key, "error", err)
		}
		return fallback
	}
	if len(data) == 0 {
		return fallback
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		s.logger.Warn("store decode failed, using fallback", "key", key, "error", err)
		return fallback
	}
	return value
}
