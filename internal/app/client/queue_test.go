package client

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	syncdomain "campsync/internal/domain/sync"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// brokenKV rejects every operation, simulating an unavailable local store.
type brokenKV struct{}

func (brokenKV) Get(string) ([]byte, error) { return nil, errors.New("store unavailable") }
func (brokenKV) Put(string, []byte) error   { return errors.New("store unavailable") }
func (brokenKV) Delete(string) error        { return errors.New("store unavailable") }

func TestQueueEnqueueRoundTrip(t *testing.T) {
	q := NewQueue(NewMemoryKV(), newTestLogger())

	c := q.Enqueue("campaign", syncdomain.ActionCreate, "c1", map[string]any{"name": "x"})
	require.NotEmpty(t, c.ID)
	assert.Equal(t, 0, c.RetryCount)

	all := q.All()
	require.Len(t, all, 1)
	assert.Equal(t, c, all[0])

	q.Remove(c.ID)
	assert.Empty(t, q.All())

	// removing again is a no-op
	q.Remove(c.ID)
	assert.Empty(t, q.All())
}

func TestQueueCountPending(t *testing.T) {
	q := NewQueue(NewMemoryKV(), newTestLogger())

	for i := 0; i < 5; i++ {
		before := q.CountPending()
		q.Enqueue("item", syncdomain.ActionUpdate, "i1", nil)
		assert.Equal(t, before+1, q.CountPending())
	}
}

func TestQueueOrdering(t *testing.T) {
	q := NewQueue(NewMemoryKV(), newTestLogger())

	first := q.Enqueue("campaign", syncdomain.ActionCreate, "c1", nil)
	second := q.Enqueue("campaign", syncdomain.ActionUpdate, "c1", nil)
	third := q.Enqueue("item", syncdomain.ActionCreate, "i1", nil)

	all := q.All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.True(t, !all[1].EnqueuedAt.Before(all[0].EnqueuedAt))
}

func TestQueueSurvivesReload(t *testing.T) {
	kv := NewMemoryKV()
	q := NewQueue(kv, newTestLogger())
	c := q.Enqueue("campaign", syncdomain.ActionCreate, "c1", map[string]any{"name": "x"})
	q.MarkFailed(q.Enqueue("item", syncdomain.ActionDelete, "i1", nil).ID)

	reloaded := NewQueue(kv, newTestLogger())
	require.Equal(t, 1, reloaded.CountPending())
	assert.Equal(t, c.ID, reloaded.All()[0].ID)
	require.Len(t, reloaded.Failed(), 1)
}

func TestQueueDegradesWithoutPersistence(t *testing.T) {
	q := NewQueue(brokenKV{}, newTestLogger())

	c := q.Enqueue("campaign", syncdomain.ActionCreate, "c1", nil)
	require.Equal(t, 1, q.CountPending())

	// the change still exists for the process lifetime
	got, ok := q.Find(c.ID)
	require.True(t, ok)
	assert.Equal(t, c.ID, got.ID)
}

func TestQueueMarkFailed(t *testing.T) {
	q := NewQueue(NewMemoryKV(), newTestLogger())

	c := q.Enqueue("campaign", syncdomain.ActionCreate, "c1", nil)
	q.MarkFailed(c.ID)

	assert.Equal(t, 0, q.CountPending())
	failed := q.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, c.ID, failed[0].ID)

	// still reachable for out-of-band retry
	_, ok := q.Find(c.ID)
	assert.True(t, ok)

	q.RemoveFailed(c.ID)
	assert.Empty(t, q.Failed())
	_, ok = q.Find(c.ID)
	assert.False(t, ok)
}

func TestQueueIncrementRetry(t *testing.T) {
	q := NewQueue(NewMemoryKV(), newTestLogger())

	c := q.Enqueue("campaign", syncdomain.ActionCreate, "c1", nil)
	assert.Equal(t, 1, q.IncrementRetry(c.ID))
	assert.Equal(t, 2, q.IncrementRetry(c.ID))
	assert.Equal(t, 0, q.IncrementRetry("missing"))

	got, ok := q.Find(c.ID)
	require.True(t, ok)
	assert.Equal(t, 2, got.RetryCount)
}
