package store

import (
	"context"
	"time"

	"github.com/offlinehq/tidesync/internal/client/models"
)

// Store is the local-store contract consumed by the engine and feature
// code. *SQLiteStore is the production implementation.
type Store interface {
	Put(ctx context.Context, table string, rec models.Record) error
	Get(ctx context.Context, table, id string) (*models.Record, error)
	List(ctx context.Context, table string) ([]models.Record, error)
	Search(ctx context.Context, table, text string) ([]models.Record, error)
	Remove(ctx context.Context, table, id string) error
	MaxUpdatedAt(ctx context.Context, table string) (time.Time, error)
	Count(ctx context.Context, table string) (int, error)
	Clear(ctx context.Context) error
}

var _ Store = (*SQLiteStore)(nil)
