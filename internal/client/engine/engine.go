// Package engine implements the local-first sync engine: the read/write
// contract used by feature code, the push worker draining the mutation
// queue, the delta-pull reconciler, and the orchestrator that schedules
// them.
//
// Writes always land in the local store first and succeed or fail on local
// grounds only; delivery to the central store is best-effort in the
// background. Reads never touch the network, with the single documented
// exception of Search falling back to a one-shot remote query when the
// local result set is empty.
package engine

import (
	"context"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/offlinehq/tidesync/internal/client/models"
	"github.com/offlinehq/tidesync/internal/client/queue"
	"github.com/offlinehq/tidesync/internal/client/remote"
	"github.com/offlinehq/tidesync/internal/client/session"
	"github.com/offlinehq/tidesync/internal/client/store"
	"github.com/offlinehq/tidesync/internal/common"
	"github.com/offlinehq/tidesync/internal/logging"
)

// Engine owns the local store, the mutation queue, and the remote client
// for one authenticated session. Construct one per sign-in and discard it
// on sign-out; nothing here is ambient state.
type Engine struct {
	store   store.Store
	queue   queue.Queue
	remote  remote.Client
	session *session.Session
	tables  []string
	logger  logging.Logger

	// pushBusy serializes Drain: a drain requested while one is running
	// is a no-op.
	pushBusy atomic.Bool

	// online is the engine's belief about connectivity, maintained by the
	// orchestrator's watcher.
	online atomic.Bool

	// now is a seam for tests.
	now func() time.Time
}

func New(st store.Store, q queue.Queue, rc remote.Client, sess *session.Session, tables []string, logger logging.Logger) *Engine {
	return &Engine{
		store:   st,
		queue:   q,
		remote:  rc,
		session: sess,
		tables:  tables,
		logger:  logger,
		now:     time.Now,
	}
}

// Tables returns the fixed set of syncable tables.
func (e *Engine) Tables() []string {
	return slices.Clone(e.tables)
}

// Online reports the engine's current connectivity belief.
func (e *Engine) Online() bool {
	return e.online.Load()
}

func (e *Engine) setOnline(v bool) {
	e.online.Store(v)
}

func (e *Engine) validTable(table string) bool {
	return slices.Contains(e.tables, table)
}

// CreateRecord assigns an id, owner and timestamps, commits the record to
// the local store, and enqueues an insert. It never waits on the network;
// call the orchestrator's SyncNow to shorten the delivery window.
func (e *Engine) CreateRecord(ctx context.Context, table string, fields map[string]any) (*models.Record, error) {
	if !e.validTable(table) {
		return nil, common.ErrorUnknownTable
	}
	owner := e.session.Owner()
	if owner == "" {
		return nil, common.ErrorUnauthorized
	}

	rec := models.Record{
		ID:        uuid.NewString(),
		Owner:     owner,
		UpdatedAt: e.now().UTC(),
		Fields:    fields,
	}
	if rec.Fields == nil {
		rec.Fields = map[string]any{}
	}

	if err := e.store.Put(ctx, table, rec); err != nil {
		return nil, err
	}
	if _, err := e.queue.Enqueue(ctx, table, models.ActionInsert, rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateRecord merges the partial fields into the stored record, re-stamps
// updated_at, and enqueues an update.
func (e *Engine) UpdateRecord(ctx context.Context, table, id string, fields map[string]any) (*models.Record, error) {
	if !e.validTable(table) {
		return nil, common.ErrorUnknownTable
	}

	existing, err := e.store.Get(ctx, table, id)
	if err != nil {
		return nil, err
	}
	if existing.Deleted() {
		return nil, common.ErrorNotFound
	}

	merged := existing.CloneFields()
	for k, v := range fields {
		merged[k] = v
	}

	rec := *existing
	rec.Fields = merged
	rec.UpdatedAt = e.now().UTC()

	if err := e.store.Put(ctx, table, rec); err != nil {
		return nil, err
	}
	if _, err := e.queue.Enqueue(ctx, table, models.ActionUpdate, rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SoftDeleteRecord sets the tombstone and enqueues a delete. Domain rows
// are never hard-deleted on the client; the tombstone propagates through
// delta sync.
func (e *Engine) SoftDeleteRecord(ctx context.Context, table, id string) error {
	if !e.validTable(table) {
		return common.ErrorUnknownTable
	}

	existing, err := e.store.Get(ctx, table, id)
	if err != nil {
		return err
	}
	if existing.Deleted() {
		return nil
	}

	now := e.now().UTC()
	rec := *existing
	rec.UpdatedAt = now
	rec.DeletedAt = &now

	if err := e.store.Put(ctx, table, rec); err != nil {
		return err
	}
	if _, err := e.queue.Enqueue(ctx, table, models.ActionDelete, rec); err != nil {
		return err
	}
	return nil
}

// ReadRecord returns a live record from the local store. It never touches
// the network.
func (e *Engine) ReadRecord(ctx context.Context, table, id string) (*models.Record, error) {
	if !e.validTable(table) {
		return nil, common.ErrorUnknownTable
	}

	rec, err := e.store.Get(ctx, table, id)
	if err != nil {
		return nil, err
	}
	if rec.Deleted() {
		return nil, common.ErrorNotFound
	}
	return rec, nil
}

// ListRecords returns all live local records of a table, most recently
// updated first. It never touches the network.
func (e *Engine) ListRecords(ctx context.Context, table string) ([]models.Record, error) {
	if !e.validTable(table) {
		return nil, common.ErrorUnknownTable
	}
	return e.store.List(ctx, table)
}

// Search looks for the substring locally first. Only when the local result
// set is empty, the owner is signed in, and the engine believes it is
// online does it fall back to a one-shot remote query; a fresh device may
// simply not have the data yet. Remote failure degrades to the empty local
// answer.
func (e *Engine) Search(ctx context.Context, table, text string) ([]models.Record, error) {
	if !e.validTable(table) {
		return nil, common.ErrorUnknownTable
	}

	local, err := e.store.Search(ctx, table, text)
	if err != nil {
		return nil, err
	}
	if len(local) > 0 {
		return local, nil
	}

	if !e.session.Authenticated() || !e.Online() {
		return local, nil
	}

	hits, err := e.remote.Search(ctx, table, text)
	if err != nil {
		e.logger.Warn(ctx, "remote search failed", "table", table, "error", err)
		return local, nil
	}
	return hits, nil
}

// Reset clears all local state for the signed-out owner: every table in
// the store, then the queue, then the session credentials, in that order,
// so an in-flight sync cannot repopulate data for a user who just signed
// out.
func (e *Engine) Reset(ctx context.Context) error {
	if err := e.store.Clear(ctx); err != nil {
		return err
	}
	if err := e.queue.Clear(ctx); err != nil {
		return err
	}
	e.session.Clear()
	return nil
}
