package engine

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/offlinehq/tidesync/internal/client/models"
	"github.com/offlinehq/tidesync/internal/client/queue"
	"github.com/offlinehq/tidesync/internal/client/remote"
	"github.com/offlinehq/tidesync/internal/client/session"
	"github.com/offlinehq/tidesync/internal/client/store"
	"github.com/offlinehq/tidesync/internal/logging"
	"github.com/stretchr/testify/require"

	"log/slog"

	_ "modernc.org/sqlite"
)

// fakeRemote is an in-memory central store shared between test engines.
// It counts every network call so tests can assert local-only behavior.
type fakeRemote struct {
	mu   sync.Mutex
	rows map[string]map[string]models.Record

	pingErr      error
	upsertErr    error
	upsertErrFor map[string]error
	selectErrFor map[string]error
	searchErr    error
	subscribeErr error

	pings, upserts, selects, searches int

	events chan remote.ChangeEvent
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		rows:         map[string]map[string]models.Record{},
		upsertErrFor: map[string]error{},
		selectErrFor: map[string]error{},
		events:       make(chan remote.ChangeEvent, 16),
	}
}

func (f *fakeRemote) networkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings + f.upserts + f.selects + f.searches
}

func (f *fakeRemote) row(table, id string) (models.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.rows[table][id]
	return rec, ok
}

func (f *fakeRemote) setPingErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingErr = err
}

func (f *fakeRemote) Register(ctx context.Context, username, password string) error { return nil }
func (f *fakeRemote) Login(ctx context.Context, username, password string) error    { return nil }

func (f *fakeRemote) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.pingErr
}

func (f *fakeRemote) Upsert(ctx context.Context, table string, rec models.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if err := f.upsertErrFor[rec.ID]; err != nil {
		return err
	}
	if f.rows[table] == nil {
		f.rows[table] = map[string]models.Record{}
	}
	f.rows[table][rec.ID] = rec
	return nil
}

func (f *fakeRemote) SelectUpdatedSince(ctx context.Context, table string, since time.Time) ([]models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selects++
	if err := f.selectErrFor[table]; err != nil {
		return nil, err
	}
	var out []models.Record
	for _, rec := range f.rows[table] {
		if rec.UpdatedAt.After(since) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRemote) Search(ctx context.Context, table, text string) ([]models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var out []models.Record
	for _, rec := range f.rows[table] {
		if rec.Deleted() {
			continue
		}
		for _, v := range rec.Fields {
			if s, ok := v.(string); ok && strings.Contains(s, text) {
				out = append(out, rec)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRemote) Subscribe(ctx context.Context) (<-chan remote.ChangeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	return f.events, nil
}

func (f *fakeRemote) PresignPut(ctx context.Context) (string, string, error) {
	return "key", "http://presigned/put", nil
}

func (f *fakeRemote) PresignGet(ctx context.Context, key string) (string, error) {
	return "http://presigned/get/" + key, nil
}

var _ remote.Client = (*fakeRemote)(nil)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE records (
  table_name TEXT NOT NULL,
  id         TEXT NOT NULL,
  owner      TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  deleted_at TEXT,
  fields     TEXT NOT NULL DEFAULT '{}',
  PRIMARY KEY (table_name, id)
);
CREATE TABLE mutation_queue (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  table_name  TEXT NOT NULL,
  action      TEXT NOT NULL,
  payload     TEXT NOT NULL,
  enqueued_at TEXT NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func signedToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"UserID": userID,
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

var testTables = []string{"notes", "tasks"}

func recordWith(id, owner, title string) models.Record {
	return models.Record{
		ID:        id,
		Owner:     owner,
		UpdatedAt: time.Now().UTC(),
		Fields:    map[string]any{"title": title},
	}
}

// recordingStore and recordingQueue intercept Clear to observe ordering.
type recordingStore struct {
	store.Store
	order    *[]string
	clearErr error
}

func (r *recordingStore) Clear(ctx context.Context) error {
	if r.clearErr != nil {
		return r.clearErr
	}
	*r.order = append(*r.order, "store.clear")
	return r.Store.Clear(ctx)
}

type recordingQueue struct {
	queue.Queue
	order *[]string
}

func (r *recordingQueue) Clear(ctx context.Context) error {
	*r.order = append(*r.order, "queue.clear")
	return r.Queue.Clear(ctx)
}

// newTestEngine wires a real sqlite store and queue to the fake remote.
// An empty owner builds a signed-out engine.
func newTestEngine(t *testing.T, rc remote.Client, owner string) *Engine {
	t.Helper()
	db := setupDB(t)
	sess := session.New()
	if owner != "" {
		require.NoError(t, sess.SetTokens(signedToken(t, owner), "refresh"))
	}

	logger := logging.NewSlogLogger(slog.New(slog.DiscardHandler))
	e := New(store.NewSQLiteStore(db), queue.NewSQLiteQueue(db), rc, sess, testTables, logger)
	e.setOnline(true)
	return e
}
