// Package sync holds the shared types of the offline mutation queue and the
// realtime push channel: pending changes awaiting confirmation by the remote
// campaign service, drain results, and the events pushed back by the service.
package sync

import (
	"time"
)

// Kind tags the entity type a change or push event refers to.
type Kind string

// Action is the mutation recorded in a pending change.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Operation is the server-side change described by a push event.
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// PendingChange is one queued mutation that could not be confirmed against
// the remote service. The queue orders entries by EnqueuedAt ascending.
type PendingChange struct {
	ID         string         `json:"id"`
	Kind       Kind           `json:"kind"`
	Action     Action         `json:"action"`
	EntityID   string         `json:"entity_id"`
	Payload    map[string]any `json:"payload"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
	RetryCount int            `json:"retry_count"`
}

// SyncError describes one failed change within a drain cycle.
type SyncError struct {
	ChangeID string `json:"id"`
	Message  string `json:"message"`
}

// SyncResult is the aggregate outcome of one drain cycle. It is created
// fresh per drain and never persisted.
type SyncResult struct {
	Success     bool        `json:"success"`
	SyncedCount int         `json:"synced_count"`
	FailedCount int         `json:"failed_count"`
	Errors      []SyncError `json:"errors"`
}

// PushEvent is one externally pushed entity change, delivered over the
// realtime channel for any client of the same scope.
type PushEvent struct {
	Operation Operation      `json:"operation"`
	Kind      Kind           `json:"kind"`
	EntityID  string         `json:"entity_id"`
	Data      map[string]any `json:"data"`
}

// Stats accumulates drain outcomes across the process lifetime. Persisted
// between runs and surfaced by the status command.
type Stats struct {
	TotalDrains int       `json:"total_drains"`
	LastDrain   time.Time `json:"last_drain"`
	LastSuccess time.Time `json:"last_successful"`
	LastFailed  time.Time `json:"last_failed"`
	TotalSynced int       `json:"total_synced"`
	TotalFailed int       `json:"total_failed"`
}
