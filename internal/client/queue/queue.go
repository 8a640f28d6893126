// Package queue implements the durable, append-only mutation queue. The
// queue lives in the same sqlite database as the local store, so an enqueue
// is on disk before the call returns: a crash after enqueue but before push
// cannot lose the mutation.
//
// No deduplication or coalescing is performed. Three updates to the same
// record produce three entries; upsert-by-id on the remote side makes the
// redundant pushes harmless.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/offlinehq/tidesync/internal/client/models"
)

// Queue is the mutation-queue contract consumed by the engine.
// *SQLiteQueue is the production implementation.
type Queue interface {
	Enqueue(ctx context.Context, table string, action models.Action, payload models.Record) (*models.QueueEntry, error)
	PeekAll(ctx context.Context) ([]models.QueueEntry, error)
	Ack(ctx context.Context, entryID int64) error
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

type SQLiteQueue struct {
	db *sql.DB
}

var _ Queue = (*SQLiteQueue)(nil)

func NewSQLiteQueue(db *sql.DB) *SQLiteQueue {
	return &SQLiteQueue{db: db}
}

// Enqueue appends a mutation. The returned entry carries the assigned
// sequence id.
func (q *SQLiteQueue) Enqueue(ctx context.Context, table string, action models.Action, payload models.Record) (*models.QueueEntry, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	enqueuedAt := time.Now().UTC()

	query := `INSERT INTO mutation_queue (table_name, action, payload, enqueued_at) VALUES (?, ?, ?, ?)`
	res, err := q.db.ExecContext(ctx, query, table, string(action), string(body), enqueuedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue mutation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get entry id: %w", err)
	}

	return &models.QueueEntry{
		ID:         id,
		Table:      table,
		Action:     action,
		Payload:    payload,
		EnqueuedAt: enqueuedAt,
	}, nil
}

// PeekAll returns every pending entry in enqueue (FIFO) order without
// removing anything.
func (q *SQLiteQueue) PeekAll(ctx context.Context) ([]models.QueueEntry, error) {
	query := `SELECT id, table_name, action, payload, enqueued_at FROM mutation_queue ORDER BY id ASC`

	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue: %w", err)
	}
	defer rows.Close()

	var result []models.QueueEntry
	for rows.Next() {
		var e models.QueueEntry
		var action, payload, enqueuedAt string

		if err := rows.Scan(&e.ID, &e.Table, &action, &payload, &enqueuedAt); err != nil {
			return nil, err
		}

		e.Action, err = models.ParseAction(action)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return nil, fmt.Errorf("entry %d: failed to unmarshal payload: %w", e.ID, err)
		}
		if e.EnqueuedAt, err = time.Parse(time.RFC3339Nano, enqueuedAt); err != nil {
			return nil, fmt.Errorf("entry %d: %w", e.ID, err)
		}

		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Ack removes a delivered entry. Acking an already-removed entry is a no-op.
func (q *SQLiteQueue) Ack(ctx context.Context, entryID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM mutation_queue WHERE id = ?`, entryID)
	if err != nil {
		return fmt.Errorf("failed to ack entry: %w", err)
	}
	return nil
}

// Count returns the number of pending entries.
func (q *SQLiteQueue) Count(ctx context.Context) (int, error) {
	var cnt int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mutation_queue`).Scan(&cnt); err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return cnt, nil
}

// Clear drops every pending entry. Used on sign-out.
func (q *SQLiteQueue) Clear(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM mutation_queue`); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}
