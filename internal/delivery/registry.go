// Package delivery routes rendered digests to their destination.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// ErrNoSender is returned when no registered prefix matches a target.
var ErrNoSender = errors.New("no sender for target")

// Sender delivers text to a target such as "telegram:12345".
type Sender func(ctx context.Context, target, text string) error

// Registry picks a Sender by target prefix. The longest matching prefix wins.
type Registry struct {
	mu      sync.RWMutex
	senders map[string]Sender
}

// NewRegistry creates a registry with a "log:" sender that writes to slog.
func NewRegistry() *Registry {
	r := &Registry{senders: make(map[string]Sender)}
	r.Register("log:", LogSender)
	return r
}

// Register adds or replaces the sender for prefix.
func (r *Registry) Register(prefix string, sender Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[prefix] = sender
}

// Deliver sends text to target.
func (r *Registry) Deliver(ctx context.Context, target, text string) error {
	r.mu.RLock()
	var (
		best   string
		sender Sender
	)
	for prefix, s := range r.senders {
		if strings.HasPrefix(target, prefix) && len(prefix) >= len(best) {
			best, sender = prefix, s
		}
	}
	r.mu.RUnlock()

	if sender == nil {
		return fmt.Errorf("%w: %s", ErrNoSender, target)
	}
	return sender(ctx, target, text)
}

// LogSender writes the text to the default logger.
func LogSender(_ context.Context, target, text string) error {
	slog.Info("digest", "target", target, "text", text)
	return nil
}
