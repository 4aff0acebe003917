package client

import (
	"encoding/json"
	"sort"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	syncdomain "campsync/internal/domain/sync"
)

const (
	// MaxRetry is the retry ceiling; a change failing this many drain
	// attempts is evicted into the failed set.
	MaxRetry = 3

	pendingKey = "pending_changes"
	failedKey  = "failed_changes"
)

// Queue is the durable, ordered log of mutations awaiting confirmation by
// the remote service. Every mutating operation rewrites the whole log blob;
// the queue is expected to stay small (tens of entries), so simplicity wins
// over a log-structured store here.
//
// When the underlying KV store rejects a write the queue keeps operating in
// memory and the change survives for the process lifetime.
type Queue struct {
	mu      gosync.Mutex
	log     *slog.Logger
	kv      KV
	pending []syncdomain.PendingChange
	failed  []syncdomain.PendingChange
}

func NewQueue(kv KV, log *slog.Logger) *Queue {
	q := &Queue{kv: kv, log: log}
	q.pending = q.load(pendingKey)
	q.failed = q.load(failedKey)
	sort.SliceStable(q.pending, func(i, j int) bool {
		return q.pending[i].EnqueuedAt.Before(q.pending[j].EnqueuedAt)
	})
	return q
}

func (q *Queue) load(key string) []syncdomain.PendingChange {
	data, err := q.kv.Get(key)
	if err != nil {
		if err != ErrKeyNotFound {
			q.log.Warn("failed to load change log, starting empty", "key", key, "error", err)
		}
		return nil
	}

	var changes []syncdomain.PendingChange
	if err := json.Unmarshal(data, &changes); err != nil {
		q.log.Warn("failed to decode change log, starting empty", "key", key, "error", err)
		return nil
	}
	return changes
}

func (q *Queue) persist(key string, changes []syncdomain.PendingChange) {
	data, err := json.Marshal(changes)
	if err != nil {
		q.log.Warn("failed to encode change log", "key", key, "error", err)
		return
	}
	if err := q.kv.Put(key, data); err != nil {
		q.log.Warn("failed to persist change log, keeping in memory", "key", key, "error", err)
	}
}

// Enqueue appends a mutation to the log and persists it. It never fails:
// persistence errors degrade to in-memory retention.
func (q *Queue) Enqueue(kind syncdomain.Kind, action syncdomain.Action, entityID string, payload map[string]any) syncdomain.PendingChange {
	q.mu.Lock()
	defer q.mu.Unlock()

	change := syncdomain.PendingChange{
		ID:         uuid.NewString(),
		Kind:       kind,
		Action:     action,
		EntityID:   entityID,
		Payload:    payload,
		EnqueuedAt: time.Now(),
	}

	q.pending = append(q.pending, change)
	q.persist(pendingKey, q.pending)

	q.log.Debug("change enqueued",
		"change_id", change.ID,
		"kind", kind,
		"action", action,
		"entity_id", entityID,
	)
	return change
}

// All returns a copy of the log ordered by enqueue time.
func (q *Queue) All() []syncdomain.PendingChange {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]syncdomain.PendingChange, len(q.pending))
	copy(out, q.pending)
	return out
}

// Remove drops a change from the pending log. Removing an unknown id is a
// no-op.
func (q *Queue) Remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, c := range q.pending {
		if c.ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			q.persist(pendingKey, q.pending)
			return
		}
	}
}

// CountPending returns the number of changes awaiting confirmation.
func (q *Queue) CountPending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// IncrementRetry bumps the retry count of a pending change and returns the
// new count, or 0 when the id is unknown.
func (q *Queue) IncrementRetry(id string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.pending {
		if q.pending[i].ID == id {
			q.pending[i].RetryCount++
			q.persist(pendingKey, q.pending)
			return q.pending[i].RetryCount
		}
	}
	return 0
}

// MarkFailed evicts a change from the pending log into the retained failed
// set, keeping it reachable for inspection and out-of-band retry.
func (q *Queue) MarkFailed(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, c := range q.pending {
		if c.ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			q.failed = append(q.failed, c)
			q.persist(pendingKey, q.pending)
			q.persist(failedKey, q.failed)
			return
		}
	}
}

// Failed returns the changes that exhausted their retries or had no handler.
func (q *Queue) Failed() []syncdomain.PendingChange {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]syncdomain.PendingChange, len(q.failed))
	copy(out, q.failed)
	return out
}

// RemoveFailed drops a change from the failed set. Unknown ids are a no-op.
func (q *Queue) RemoveFailed(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, c := range q.failed {
		if c.ID == id {
			q.failed = append(q.failed[:i], q.failed[i+1:]...)
			q.persist(failedKey, q.failed)
			return
		}
	}
}

// Find looks a change up by id across the pending log and the failed set.
func (q *Queue) Find(id string) (syncdomain.PendingChange, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, c := range q.pending {
		if c.ID == id {
			return c, true
		}
	}
	for _, c := range q.failed {
		if c.ID == id {
			return c, true
		}
	}
	return syncdomain.PendingChange{}, false
}
