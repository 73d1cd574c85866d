package command

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/gdbrns/go-whatsapp-multibot/internal/metrics"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/log"
)

// EventHandler is invoked for every dispatched message.
type EventHandler func(ctx context.Context, ev *Event) error

type entry struct {
	owner  string
	handle EventHandler
}

// Registry is the ordered list of event handlers. Handlers run in registration
// order and one failing handler never stops the ones after it.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
	metrics *metrics.Metrics
}

func NewRegistry(m *metrics.Metrics) *Registry {
	return &Registry{metrics: m}
}

// Register appends a handler owned by owner. The owner tag lets a plugin unit
// drop everything it registered before reloading.
func (r *Registry) Register(owner string, h EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{owner: owner, handle: h})
}

// Remove drops every handler owned by owner and returns how many were removed.
func (r *Registry) Remove(owner string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make([]entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.owner != owner {
			kept = append(kept, e)
		}
	}
	removed := len(r.entries) - len(kept)
	r.entries = kept
	return removed
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Dispatch runs every handler against ev. Inert messages are dropped.
func (r *Registry) Dispatch(ctx context.Context, ev *Event) {
	if ev == nil || ev.Inert() {
		return
	}
	r.metrics.MessageReceived(string(ev.Type()))

	r.mu.RLock()
	snapshot := make([]entry, len(r.entries))
	copy(snapshot, r.entries)
	r.mu.RUnlock()

	for _, e := range snapshot {
		if err := safeCall(func() error { return e.handle(ctx, ev) }); err != nil {
			r.metrics.HandlerFailed()
			log.Bot().WithError(err).WithField("owner", e.owner).WithField("chat", ev.Chat.String()).Error("Event handler failed")
		}
	}
}

// safeCall turns a panic inside fn into an error.
func safeCall(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("panic: %v", rec)
		}
	}()
	return fn()
}
