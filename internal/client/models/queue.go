package models

import (
	"time"

	"github.com/offlinehq/tidesync/internal/common"
)

// Action classifies a queued mutation.
type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ParseAction validates a stored action string.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionInsert, ActionUpdate, ActionDelete:
		return Action(s), nil
	default:
		return "", common.ErrorUnknownAction
	}
}

// QueueEntry is one pending local mutation awaiting durable delivery to the
// remote store. Entries are processed in enqueue order and removed only
// after the remote store has accepted the operation.
type QueueEntry struct {
	// ID is a local, auto-incrementing sequence number. It defines FIFO
	// order and is never sent to the remote store.
	ID int64

	// Table names the syncable table this mutation belongs to.
	Table string

	Action Action

	// Payload is the record-shaped data captured at mutation time.
	Payload Record

	EnqueuedAt time.Time
}
