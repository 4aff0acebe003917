package client

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	"campsync/internal/domain/campaign"
	syncdomain "campsync/internal/domain/sync"
)

// SubscriptionState tracks the reconciler's push subscription lifecycle.
type SubscriptionState int

const (
	StateUnsubscribed SubscriptionState = iota
	StateSubscribing
	StateActive
)

func (s SubscriptionState) String() string {
	switch s {
	case StateSubscribing:
		return "subscribing"
	case StateActive:
		return "active"
	default:
		return "unsubscribed"
	}
}

// ErrAlreadySubscribed is returned by Subscribe while a subscription is
// being established or active.
var ErrAlreadySubscribed = errors.New("already subscribed")

// Feed is the push-notification channel the reconciler consumes. Open
// registers interest in a scope and yields events until the feed closes.
type Feed interface {
	Open(ctx context.Context, scope string) (<-chan syncdomain.PushEvent, error)
	Close() error
}

// Reconciler applies externally pushed entity changes, from any client of
// the scope, into the local state store. It applies server state
// unconditionally: a push for an entity with an unsynced local edit still
// pending in the queue overwrites the local copy. That race is a known,
// accepted hazard of the remote-wins policy, not a bug in the dispatch.
type Reconciler struct {
	store *Store
	feed  Feed
	log   *slog.Logger

	mu     gosync.Mutex
	state  SubscriptionState
	scope  string
	cancel context.CancelFunc
	done   chan struct{}
}

func NewReconciler(store *Store, feed Feed, log *slog.Logger) *Reconciler {
	return &Reconciler{store: store, feed: feed, log: log}
}

// State returns the current subscription state.
func (r *Reconciler) State() SubscriptionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Subscribe registers interest in a scope and starts applying pushed events
// until Unsubscribe is called or ctx ends.
func (r *Reconciler) Subscribe(ctx context.Context, scope string) error {
	r.mu.Lock()
	if r.state != StateUnsubscribed {
		r.mu.Unlock()
		return ErrAlreadySubscribed
	}
	r.state = StateSubscribing
	r.scope = scope
	r.mu.Unlock()

	feedCtx, cancel := context.WithCancel(ctx)
	events, err := r.feed.Open(feedCtx, scope)
	if err != nil {
		cancel()
		r.mu.Lock()
		r.state = StateUnsubscribed
		r.mu.Unlock()
		return fmt.Errorf("failed to open push feed for scope %q: %w", scope, err)
	}

	done := make(chan struct{})
	r.mu.Lock()
	r.state = StateActive
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	r.log.Info("push subscription active", "scope", scope)

	go func() {
		defer close(done)
		for {
			select {
			case <-feedCtx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					r.log.Warn("push feed closed", "scope", scope)
					return
				}
				r.Apply(ev)
			}
		}
	}()

	return nil
}

// Unsubscribe tears the subscription down. It is idempotent.
func (r *Reconciler) Unsubscribe() {
	r.mu.Lock()
	if r.state == StateUnsubscribed {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	done := r.done
	r.state = StateUnsubscribed
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if err := r.feed.Close(); err != nil {
		r.log.Warn("failed to close push feed", "error", err)
	}
	r.log.Info("push subscription released")
}

// Apply dispatches one push event into the store. Events are applied in
// delivery order, independent of and interleaved with draining.
func (r *Reconciler) Apply(ev syncdomain.PushEvent) {
	switch ev.Operation {
	case syncdomain.OpInsert:
		// An insert may race a prior optimistic local copy of the same
		// entity; replacing by id dedupes it.
		r.store.Upsert(campaign.Entity{
			ID:       ev.EntityID,
			Kind:     ev.Kind,
			Attrs:    ev.Data,
			Revision: campaign.RevisionOf(ev.Data, time.Now()),
		})
		r.log.Debug("push insert applied", "entity_id", ev.EntityID, "kind", ev.Kind)

	case syncdomain.OpUpdate:
		existing, ok := r.store.Get(ev.EntityID)
		if !ok {
			r.log.Debug("push update for unknown entity dropped", "entity_id", ev.EntityID)
			return
		}
		r.store.Upsert(existing.Patch(ev.Data, campaign.RevisionOf(ev.Data, time.Now())))
		r.log.Debug("push update applied", "entity_id", ev.EntityID)

	case syncdomain.OpDelete:
		r.store.Remove(ev.EntityID)
		r.log.Debug("push delete applied", "entity_id", ev.EntityID)

	default:
		r.log.Warn("unknown push operation", "operation", ev.Operation)
	}
}
