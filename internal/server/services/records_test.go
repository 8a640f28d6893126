package services

import (
	"context"
	"testing"
	"time"

	"github.com/offlinehq/tidesync/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecordsRepo struct {
	upserted  []*models.Record
	upsertErr error

	selectOut []models.Record
	gotSince  time.Time
	gotQuery  string
}

func (f *fakeRecordsRepo) Upsert(ctx context.Context, table string, rec *models.Record) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, rec)
	return nil
}

func (f *fakeRecordsRepo) SelectUpdatedSince(ctx context.Context, owner, table string, since time.Time) ([]models.Record, error) {
	f.gotSince = since
	return f.selectOut, nil
}

func (f *fakeRecordsRepo) Search(ctx context.Context, owner, table, text string) ([]models.Record, error) {
	f.gotQuery = text
	return f.selectOut, nil
}

type notification struct {
	table   string
	id      string
	deleted bool
}

type fakeNotifier struct {
	events []notification
}

func (f *fakeNotifier) RecordChanged(table, id string, deleted bool) {
	f.events = append(f.events, notification{table: table, id: id, deleted: deleted})
}

func newRecordService(repo *fakeRecordsRepo, n ChangeNotifier) *RecordService {
	return NewRecordService(nil, &fakeRepoManager{rec: repo}, n)
}

func TestRecordUpsert_OwnerFromTokenWins(t *testing.T) {
	repo := &fakeRecordsRepo{}
	n := &fakeNotifier{}
	svc := newRecordService(repo, n)

	rec := &models.Record{ID: "rec-1", Owner: "spoofed", Fields: map[string]any{"title": "x"}}
	err := svc.Upsert(context.Background(), "user-1", "notes", rec)
	require.NoError(t, err)

	require.Len(t, repo.upserted, 1)
	assert.Equal(t, "user-1", repo.upserted[0].Owner)
	assert.Equal(t, []notification{{table: "notes", id: "rec-1", deleted: false}}, n.events)
}

func TestRecordUpsert_NotifiesTombstoneAsDelete(t *testing.T) {
	repo := &fakeRecordsRepo{}
	n := &fakeNotifier{}
	svc := newRecordService(repo, n)

	deletedAt := time.Now().UTC()
	rec := &models.Record{ID: "rec-2", DeletedAt: &deletedAt}
	require.NoError(t, svc.Upsert(context.Background(), "user-1", "notes", rec))

	require.Len(t, n.events, 1)
	assert.True(t, n.events[0].deleted)
}

func TestRecordUpsert_RepoErrorSkipsNotification(t *testing.T) {
	repo := &fakeRecordsRepo{upsertErr: assert.AnError}
	n := &fakeNotifier{}
	svc := newRecordService(repo, n)

	err := svc.Upsert(context.Background(), "user-1", "notes", &models.Record{ID: "rec-3"})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, n.events)
}

func TestRecordUpsert_NilNotifierIsSafe(t *testing.T) {
	repo := &fakeRecordsRepo{}
	svc := newRecordService(repo, nil)

	err := svc.Upsert(context.Background(), "user-1", "notes", &models.Record{ID: "rec-4"})
	require.NoError(t, err)
	require.Len(t, repo.upserted, 1)
}

func TestSelectUpdatedSince_Delegates(t *testing.T) {
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeRecordsRepo{selectOut: []models.Record{{ID: "rec-5"}}}
	svc := newRecordService(repo, nil)

	out, err := svc.SelectUpdatedSince(context.Background(), "user-1", "notes", since)
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, since, repo.gotSince)
}

func TestSearch_Delegates(t *testing.T) {
	repo := &fakeRecordsRepo{selectOut: []models.Record{{ID: "rec-6"}}}
	svc := newRecordService(repo, nil)

	out, err := svc.Search(context.Background(), "user-1", "notes", "milk")
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, "milk", repo.gotQuery)
}
