package client

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"

	"golang.org/x/exp/slog"

	syncdomain "campsync/internal/domain/sync"
)

var (
	// ErrDrainInProgress is returned to a drain that found another running.
	// Concurrent drains are rejected, not queued, to avoid duplicate
	// remote writes.
	ErrDrainInProgress = errors.New("drain already in progress")

	// ErrNoHandler marks a change whose kind has no registered handler.
	ErrNoHandler = errors.New("no sync handler registered for kind")

	// ErrChangeNotFound is returned by RetryOne for unknown change ids.
	ErrChangeNotFound = errors.New("pending change not found")
)

// Engine drives the pending change log to empty against the registry:
// strictly in enqueue order, one drain at a time, with per-change retry and
// permanent-failure eviction.
type Engine struct {
	queue    *Queue
	registry *Registry
	log      *slog.Logger

	mu   gosync.Mutex
	busy bool
}

func NewEngine(queue *Queue, registry *Registry, log *slog.Logger) *Engine {
	return &Engine{queue: queue, registry: registry, log: log}
}

// Drain attempts to apply every pending change to the remote service. If a
// drain is already running it returns immediately with a degenerate result;
// no pending change is touched.
func (e *Engine) Drain(ctx context.Context) syncdomain.SyncResult {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return syncdomain.SyncResult{
			Success: false,
			Errors:  []syncdomain.SyncError{{Message: ErrDrainInProgress.Error()}},
		}
	}
	e.busy = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.busy = false
		e.mu.Unlock()
	}()

	result := syncdomain.SyncResult{Errors: []syncdomain.SyncError{}}

	changes := e.queue.All()
	e.log.Debug("drain started", "pending", len(changes))

	// Handlers run sequentially to preserve the log's causal order and to
	// bound concurrent remote calls.
	for _, change := range changes {
		handler, ok := e.registry.Resolve(change.Kind)
		if !ok {
			e.queue.MarkFailed(change.ID)
			result.FailedCount++
			result.Errors = append(result.Errors, syncdomain.SyncError{
				ChangeID: change.ID,
				Message:  fmt.Sprintf("%v: %s", ErrNoHandler, change.Kind),
			})
			e.log.Warn("evicting change without handler",
				"change_id", change.ID,
				"kind", change.Kind,
			)
			continue
		}

		err := invoke(ctx, handler, change)
		if err == nil {
			e.queue.Remove(change.ID)
			result.SyncedCount++
			continue
		}

		result.FailedCount++
		retries := e.queue.IncrementRetry(change.ID)
		if retries >= MaxRetry {
			e.queue.MarkFailed(change.ID)
			result.Errors = append(result.Errors, syncdomain.SyncError{
				ChangeID: change.ID,
				Message:  fmt.Sprintf("retries exhausted: %v", err),
			})
			e.log.Error("change evicted after exhausting retries",
				"change_id", change.ID,
				"kind", change.Kind,
				"retries", retries,
				"error", err,
			)
		} else {
			result.Errors = append(result.Errors, syncdomain.SyncError{
				ChangeID: change.ID,
				Message:  err.Error(),
			})
			e.log.Warn("change failed, kept for next drain",
				"change_id", change.ID,
				"kind", change.Kind,
				"retries", retries,
				"error", err,
			)
		}
	}

	result.Success = result.FailedCount == 0

	e.log.Info("drain finished",
		"synced", result.SyncedCount,
		"failed", result.FailedCount,
	)
	return result
}

// RetryOne applies a single change out of band, whether still pending or
// already evicted into the failed set. It does not interact with the drain
// busy flag.
func (e *Engine) RetryOne(ctx context.Context, id string) error {
	change, ok := e.queue.Find(id)
	if !ok {
		return ErrChangeNotFound
	}

	handler, ok := e.registry.Resolve(change.Kind)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, change.Kind)
	}

	if err := invoke(ctx, handler, change); err != nil {
		return fmt.Errorf("retry of change %s failed: %w", id, err)
	}

	e.queue.Remove(id)
	e.queue.RemoveFailed(id)
	e.log.Info("change retried successfully", "change_id", id)
	return nil
}

// IsBusy reports whether a drain is currently running.
func (e *Engine) IsBusy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

// invoke shields the drain loop from panicking handlers; a panic counts as
// a handler failure.
func invoke(ctx context.Context, handler Handler, change syncdomain.PendingChange) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler(ctx, change)
}
