package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/offlinehq/tidesync/internal/server/models"
	"github.com/offlinehq/tidesync/internal/server/repositories/repomanager"
)

// ChangeNotifier receives a notification after every accepted upsert.
// The realtime hub implements it; a nil notifier disables notifications.
type ChangeNotifier interface {
	RecordChanged(table, id string, deleted bool)
}

// RecordService applies client pushes and serves owner-scoped delta reads.
type RecordService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	notifier    ChangeNotifier
}

func NewRecordService(db *sql.DB, m repomanager.RepositoryManager, notifier ChangeNotifier) *RecordService {
	return &RecordService{db: db, repomanager: m, notifier: notifier}
}

// Upsert stores the pushed record under the authenticated owner and fans
// out a change notification. The owner from the token always wins over
// whatever the client put in the payload.
func (s *RecordService) Upsert(ctx context.Context, owner, table string, rec *models.Record) error {
	rec.Owner = owner

	repo := s.repomanager.Records(s.db)
	if err := repo.Upsert(ctx, table, rec); err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.RecordChanged(table, rec.ID, rec.DeletedAt != nil)
	}
	return nil
}

// SelectUpdatedSince returns the owner's rows updated strictly after since,
// tombstones included.
func (s *RecordService) SelectUpdatedSince(ctx context.Context, owner, table string, since time.Time) ([]models.Record, error) {
	repo := s.repomanager.Records(s.db)
	return repo.SelectUpdatedSince(ctx, owner, table, since)
}

// Search returns the owner's live rows matching text.
func (s *RecordService) Search(ctx context.Context, owner, table, text string) ([]models.Record, error) {
	repo := s.repomanager.Records(s.db)
	return repo.Search(ctx, owner, table, text)
}
