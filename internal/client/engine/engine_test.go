package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/offlinehq/tidesync/internal/client/remote"
	"github.com/offlinehq/tidesync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndRead_NeverTouchNetwork(t *testing.T) {
	ctx := context.Background()
	rc := newFakeRemote()
	e := newTestEngine(t, rc, "alice")

	created, err := e.CreateRecord(ctx, "notes", map[string]any{"title": "groceries"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "alice", created.Owner)
	assert.False(t, created.UpdatedAt.IsZero())

	got, err := e.ReadRecord(ctx, "notes", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "groceries", got.Fields["title"])

	list, err := e.ListRecords(ctx, "notes")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.Equal(t, 0, rc.networkCalls())
}

func TestCreateRecord_RequiresSession(t *testing.T) {
	e := newTestEngine(t, newFakeRemote(), "")

	_, err := e.CreateRecord(context.Background(), "notes", map[string]any{"title": "x"})
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestUnknownTableRejected(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newFakeRemote(), "alice")

	_, err := e.CreateRecord(ctx, "invoices", nil)
	assert.ErrorIs(t, err, common.ErrorUnknownTable)
	_, err = e.ReadRecord(ctx, "invoices", "some-id")
	assert.ErrorIs(t, err, common.ErrorUnknownTable)
	_, err = e.ListRecords(ctx, "invoices")
	assert.ErrorIs(t, err, common.ErrorUnknownTable)
}

func TestUpdateRecord_MergesPartialFields(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newFakeRemote(), "alice")

	created, err := e.CreateRecord(ctx, "notes", map[string]any{"title": "groceries", "body": "milk"})
	require.NoError(t, err)

	before := created.UpdatedAt
	e.now = func() time.Time { return before.Add(time.Second) }

	updated, err := e.UpdateRecord(ctx, "notes", created.ID, map[string]any{"body": "milk, eggs"})
	require.NoError(t, err)
	assert.Equal(t, "groceries", updated.Fields["title"])
	assert.Equal(t, "milk, eggs", updated.Fields["body"])
	assert.True(t, updated.UpdatedAt.After(before))

	cnt, err := e.queue.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cnt)
}

func TestUpdateRecord_NotFound(t *testing.T) {
	e := newTestEngine(t, newFakeRemote(), "alice")

	_, err := e.UpdateRecord(context.Background(), "notes", "missing", map[string]any{"x": 1})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSoftDelete_HidesRecordButKeepsTombstone(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newFakeRemote(), "alice")

	created, err := e.CreateRecord(ctx, "notes", map[string]any{"title": "secret"})
	require.NoError(t, err)

	require.NoError(t, e.SoftDeleteRecord(ctx, "notes", created.ID))

	_, err = e.ReadRecord(ctx, "notes", created.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	list, err := e.ListRecords(ctx, "notes")
	require.NoError(t, err)
	assert.Empty(t, list)

	// the row itself survives as a tombstone so the deletion can propagate
	raw, err := e.store.Get(ctx, "notes", created.ID)
	require.NoError(t, err)
	assert.True(t, raw.Deleted())

	// deleting again is a no-op, not an error
	require.NoError(t, e.SoftDeleteRecord(ctx, "notes", created.ID))
}

func TestSearch_PrefersLocalResults(t *testing.T) {
	ctx := context.Background()
	rc := newFakeRemote()
	e := newTestEngine(t, rc, "alice")

	_, err := e.CreateRecord(ctx, "notes", map[string]any{"title": "tide tables"})
	require.NoError(t, err)

	hits, err := e.Search(ctx, "notes", "tide")
	require.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Equal(t, 0, rc.searches)
}

func TestSearch_FallsBackToRemoteWhenLocalEmpty(t *testing.T) {
	ctx := context.Background()
	rc := newFakeRemote()
	require.NoError(t, rc.Upsert(ctx, "notes", recordWith("r1", "alice", "tide charts")))
	e := newTestEngine(t, rc, "alice")

	hits, err := e.Search(ctx, "notes", "tide")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "r1", hits[0].ID)
}

func TestSearch_SkipsRemoteWhileOffline(t *testing.T) {
	ctx := context.Background()
	rc := newFakeRemote()
	e := newTestEngine(t, rc, "alice")
	e.setOnline(false)

	hits, err := e.Search(ctx, "notes", "tide")
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, 0, rc.searches)
}

func TestSearch_RemoteFailureDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	rc := newFakeRemote()
	rc.searchErr = remote.ErrUnavailable
	e := newTestEngine(t, rc, "alice")

	hits, err := e.Search(ctx, "notes", "tide")
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, 1, rc.searches)
}

func TestSyncFailuresNeverSurfaceThroughWrites(t *testing.T) {
	ctx := context.Background()
	rc := newFakeRemote()
	rc.upsertErr = remote.ErrUnavailable
	e := newTestEngine(t, rc, "alice")

	// the write contract is local: a dead server must not be visible here
	created, err := e.CreateRecord(ctx, "notes", map[string]any{"title": "offline note"})
	require.NoError(t, err)

	_, err = e.UpdateRecord(ctx, "notes", created.ID, map[string]any{"title": "still offline"})
	require.NoError(t, err)

	acked, err := e.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, acked)
}

func TestReset_ClearsStoreThenQueueThenSession(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newFakeRemote(), "alice")

	_, err := e.CreateRecord(ctx, "notes", map[string]any{"title": "a"})
	require.NoError(t, err)

	var order []string
	e.store = &recordingStore{Store: e.store, order: &order}
	e.queue = &recordingQueue{Queue: e.queue, order: &order}

	require.NoError(t, e.Reset(ctx))

	assert.Equal(t, []string{"store.clear", "queue.clear"}, order)
	assert.False(t, e.session.Authenticated())

	cnt, err := e.store.Count(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, 0, cnt)
}

func TestReset_StoreFailureLeavesSessionIntact(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newFakeRemote(), "alice")

	boom := errors.New("disk gone")
	e.store = &recordingStore{Store: e.store, clearErr: boom}

	err := e.Reset(ctx)
	assert.ErrorIs(t, err, boom)
	assert.True(t, e.session.Authenticated())
}
