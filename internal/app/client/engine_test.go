package client

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncdomain "campsync/internal/domain/sync"
)

func newTestEngine(t *testing.T) (*Engine, *Queue, *Registry) {
	t.Helper()
	q := NewQueue(NewMemoryKV(), newTestLogger())
	r := NewRegistry()
	return NewEngine(q, r, newTestLogger()), q, r
}

func TestDrainEmptyLog(t *testing.T) {
	e, _, _ := newTestEngine(t)

	result := e.Drain(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.SyncedCount)
	assert.Equal(t, 0, result.FailedCount)
	assert.Empty(t, result.Errors)
}

func TestDrainMixedOutcome(t *testing.T) {
	e, q, r := newTestEngine(t)

	q.Enqueue("campaign", syncdomain.ActionCreate, "a", nil)
	q.Enqueue("campaign", syncdomain.ActionCreate, "b", nil)
	c3 := q.Enqueue("campaign", syncdomain.ActionCreate, "c", nil)

	r.Register("campaign", func(_ context.Context, change syncdomain.PendingChange) error {
		if change.ID == c3.ID {
			return errors.New("boom")
		}
		return nil
	})

	result := e.Drain(context.Background())

	assert.False(t, result.Success)
	assert.Equal(t, 2, result.SyncedCount)
	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, c3.ID, result.Errors[0].ChangeID)

	remaining := q.All()
	require.Len(t, remaining, 1)
	assert.Equal(t, c3.ID, remaining[0].ID)
	assert.Equal(t, 1, remaining[0].RetryCount)
}

func TestDrainEvictsAfterMaxRetries(t *testing.T) {
	e, q, r := newTestEngine(t)

	var attempts atomic.Int32
	r.Register("campaign", func(context.Context, syncdomain.PendingChange) error {
		attempts.Add(1)
		return errors.New("always fails")
	})

	c := q.Enqueue("campaign", syncdomain.ActionCreate, "a", nil)

	for i := 0; i < MaxRetry-1; i++ {
		result := e.Drain(context.Background())
		assert.False(t, result.Success)
		assert.Equal(t, 1, q.CountPending(), "change stays queued before the ceiling")
	}

	final := e.Drain(context.Background())
	assert.Equal(t, int32(MaxRetry), attempts.Load(), "one handler call per drain")
	assert.Equal(t, 0, q.CountPending())
	require.Len(t, final.Errors, 1)
	assert.Equal(t, c.ID, final.Errors[0].ChangeID)

	// evicted into the failed set, not lost
	failed := q.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, c.ID, failed[0].ID)
	assert.Equal(t, MaxRetry, failed[0].RetryCount)

	// no further automatic retries
	e.Drain(context.Background())
	assert.Equal(t, int32(MaxRetry), attempts.Load())
}

func TestDrainMissingHandlerIsPermanent(t *testing.T) {
	e, q, _ := newTestEngine(t)

	c := q.Enqueue("unknown-kind", syncdomain.ActionCreate, "a", nil)

	result := e.Drain(context.Background())

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, c.ID, result.Errors[0].ChangeID)
	assert.Equal(t, 0, q.CountPending())
	assert.Len(t, q.Failed(), 1)
}

func TestDrainRejectsConcurrentDrain(t *testing.T) {
	e, q, r := newTestEngine(t)

	var calls atomic.Int32
	block := make(chan struct{})
	started := make(chan struct{})
	r.Register("campaign", func(context.Context, syncdomain.PendingChange) error {
		calls.Add(1)
		close(started)
		<-block
		return nil
	})

	q.Enqueue("campaign", syncdomain.ActionCreate, "a", nil)

	first := make(chan syncdomain.SyncResult, 1)
	go func() { first <- e.Drain(context.Background()) }()
	<-started

	second := e.Drain(context.Background())
	assert.False(t, second.Success)
	require.Len(t, second.Errors, 1)
	assert.Contains(t, second.Errors[0].Message, "already in progress")
	assert.Equal(t, int32(1), calls.Load(), "rejected drain must not invoke handlers")

	close(block)
	result := <-first
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.SyncedCount)
	assert.False(t, e.IsBusy())
}

func TestDrainSurvivesHandlerPanic(t *testing.T) {
	e, q, r := newTestEngine(t)

	r.Register("campaign", func(_ context.Context, change syncdomain.PendingChange) error {
		if change.EntityID == "bad" {
			panic("handler exploded")
		}
		return nil
	})

	q.Enqueue("campaign", syncdomain.ActionCreate, "bad", nil)
	q.Enqueue("campaign", syncdomain.ActionCreate, "good", nil)

	result := e.Drain(context.Background())

	assert.Equal(t, 1, result.SyncedCount, "drain continues past a panicking handler")
	assert.Equal(t, 1, result.FailedCount)
	assert.False(t, e.IsBusy())
}

func TestRetryOne(t *testing.T) {
	e, q, r := newTestEngine(t)

	var fail atomic.Bool
	fail.Store(true)
	r.Register("campaign", func(context.Context, syncdomain.PendingChange) error {
		if fail.Load() {
			return errors.New("still down")
		}
		return nil
	})

	c := q.Enqueue("campaign", syncdomain.ActionCreate, "a", nil)

	// exhaust retries so the change is evicted
	for i := 0; i < MaxRetry; i++ {
		e.Drain(context.Background())
	}
	require.Len(t, q.Failed(), 1)

	// user-initiated retry while the service is still down
	err := e.RetryOne(context.Background(), c.ID)
	require.Error(t, err)
	assert.Len(t, q.Failed(), 1)

	// and once it recovers
	fail.Store(false)
	require.NoError(t, e.RetryOne(context.Background(), c.ID))
	assert.Empty(t, q.Failed())
	assert.Equal(t, 0, q.CountPending())
}

func TestRetryOneUnknownID(t *testing.T) {
	e, _, _ := newTestEngine(t)

	err := e.RetryOne(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrChangeNotFound)
}

func TestRegistryReplaceAndResolve(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Resolve("campaign")
	assert.False(t, ok)

	var which string
	r.Register("campaign", func(context.Context, syncdomain.PendingChange) error {
		which = "first"
		return nil
	})
	r.Register("campaign", func(context.Context, syncdomain.PendingChange) error {
		which = "second"
		return nil
	})

	h, ok := r.Resolve("campaign")
	require.True(t, ok)
	require.NoError(t, h(context.Background(), syncdomain.PendingChange{}))
	assert.Equal(t, "second", which, "re-registering replaces the handler")
}
