package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campsync/internal/domain/campaign"
	syncdomain "campsync/internal/domain/sync"
)

// chanFeed is a push feed backed by a plain channel.
type chanFeed struct {
	events  chan syncdomain.PushEvent
	openErr error
	closed  int
}

func (f *chanFeed) Open(context.Context, string) (<-chan syncdomain.PushEvent, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.events, nil
}

func (f *chanFeed) Close() error {
	f.closed++
	return nil
}

func newTestReconciler() (*Reconciler, *Store, *chanFeed) {
	store := NewStore()
	feed := &chanFeed{events: make(chan syncdomain.PushEvent, 8)}
	return NewReconciler(store, feed, newTestLogger()), store, feed
}

func TestReconcilerInsertDedupesByID(t *testing.T) {
	r, store, _ := newTestReconciler()

	// an optimistic local copy already exists
	store.Upsert(entity("c1", "local draft"))
	store.Upsert(entity("c2", "other"))

	r.Apply(syncdomain.PushEvent{
		Operation: syncdomain.OpInsert,
		Kind:      campaign.KindCampaign,
		EntityID:  "c1",
		Data:      map[string]any{"name": "server copy"},
	})

	assert.Equal(t, 2, store.Len(), "insert replaced the prior copy instead of duplicating")
	got, ok := store.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "server copy", got.Attrs["name"])
}

func TestReconcilerInsertPrependsUnknown(t *testing.T) {
	r, store, _ := newTestReconciler()
	store.Upsert(entity("c1", "existing"))

	r.Apply(syncdomain.PushEvent{
		Operation: syncdomain.OpInsert,
		Kind:      campaign.KindCampaign,
		EntityID:  "c2",
		Data:      map[string]any{"name": "fresh"},
	})

	all := store.All()
	require.Len(t, all, 2)
	assert.Equal(t, "c2", all[0].ID)
}

func TestReconcilerUpdateShallowMerge(t *testing.T) {
	r, store, _ := newTestReconciler()
	store.Upsert(campaign.Entity{
		ID:   "c1",
		Kind: campaign.KindCampaign,
		Attrs: map[string]any{
			"name":   "Night Below",
			"status": "active",
			"notes":  "week 3",
		},
	})

	r.Apply(syncdomain.PushEvent{
		Operation: syncdomain.OpUpdate,
		Kind:      campaign.KindCampaign,
		EntityID:  "c1",
		Data:      map[string]any{"status": "paused"},
	})

	got, ok := store.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "paused", got.Attrs["status"])
	assert.Equal(t, "Night Below", got.Attrs["name"], "attributes absent from the push stay")
	assert.Equal(t, "week 3", got.Attrs["notes"])
}

func TestReconcilerUpdateUnknownIDIsNoop(t *testing.T) {
	r, store, _ := newTestReconciler()

	r.Apply(syncdomain.PushEvent{
		Operation: syncdomain.OpUpdate,
		EntityID:  "ghost",
		Data:      map[string]any{"name": "x"},
	})

	assert.Equal(t, 0, store.Len())
}

func TestReconcilerDelete(t *testing.T) {
	r, store, _ := newTestReconciler()
	store.Upsert(entity("c1", "one"))

	r.Apply(syncdomain.PushEvent{Operation: syncdomain.OpDelete, EntityID: "c1"})
	assert.Equal(t, 0, store.Len())

	// deleting again is a no-op
	r.Apply(syncdomain.PushEvent{Operation: syncdomain.OpDelete, EntityID: "c1"})
	assert.Equal(t, 0, store.Len())
}

func TestReconcilerUpdateUsesPushedRevision(t *testing.T) {
	r, store, _ := newTestReconciler()
	store.Upsert(entity("c1", "one"))

	r.Apply(syncdomain.PushEvent{
		Operation: syncdomain.OpUpdate,
		EntityID:  "c1",
		Data:      map[string]any{"updated_at": "2026-03-01T10:00:00Z"},
	})

	got, _ := store.Get("c1")
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), got.Revision)
}

func TestReconcilerSubscriptionLifecycle(t *testing.T) {
	r, store, feed := newTestReconciler()

	require.Equal(t, StateUnsubscribed, r.State())
	require.NoError(t, r.Subscribe(context.Background(), "party:42"))
	require.Equal(t, StateActive, r.State())

	// a second subscribe is rejected while active
	assert.ErrorIs(t, r.Subscribe(context.Background(), "party:42"), ErrAlreadySubscribed)

	feed.events <- syncdomain.PushEvent{
		Operation: syncdomain.OpInsert,
		Kind:      campaign.KindCampaign,
		EntityID:  "c1",
		Data:      map[string]any{"name": "pushed"},
	}

	assert.Eventually(t, func() bool {
		_, ok := store.Get("c1")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	r.Unsubscribe()
	assert.Equal(t, StateUnsubscribed, r.State())
	assert.Equal(t, 1, feed.closed)

	// unsubscribing twice is harmless
	r.Unsubscribe()
	assert.Equal(t, 1, feed.closed)
}

func TestReconcilerSubscribeFailure(t *testing.T) {
	store := NewStore()
	feed := &chanFeed{openErr: errors.New("channel down")}
	r := NewReconciler(store, feed, newTestLogger())

	err := r.Subscribe(context.Background(), "party:42")
	require.Error(t, err)
	assert.Equal(t, StateUnsubscribed, r.State(), "failed subscribe rolls back")
}
