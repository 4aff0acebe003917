package client

import (
	"context"
	gosync "sync"

	syncdomain "campsync/internal/domain/sync"
)

// Handler applies one pending change to the remote service. A nil return
// confirms the change; any error leaves it queued for retry.
type Handler func(ctx context.Context, change syncdomain.PendingChange) error

// Registry maps entity kinds to their remote-write handlers, resolved once
// at startup so every kind the client mutates has a known code path.
type Registry struct {
	mu       gosync.RWMutex
	handlers map[syncdomain.Kind]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[syncdomain.Kind]Handler)}
}

// Register installs the handler for a kind, replacing any previous one.
func (r *Registry) Register(kind syncdomain.Kind, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = handler
}

// Resolve returns the handler for a kind. A missing handler is a permanent
// failure for changes of that kind, not a retryable one.
func (r *Registry) Resolve(kind syncdomain.Kind) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}

// Kinds lists the registered kinds.
func (r *Registry) Kinds() []syncdomain.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]syncdomain.Kind, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	return kinds
}
