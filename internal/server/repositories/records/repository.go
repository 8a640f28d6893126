// Package records provides the server-side store for synced rows: the
// upsert target of client pushes and the source of owner-scoped delta
// selects.
package records

import (
	"context"
	"time"

	"github.com/offlinehq/tidesync/internal/server/models"
)

type Repository interface {
	// Upsert fully replaces the row identified by (table, rec.ID).
	// A conflicting row owned by another user is left untouched and
	// common.ErrorUnauthorized is returned.
	Upsert(ctx context.Context, table string, rec *models.Record) error

	// SelectUpdatedSince returns the owner's rows in table updated
	// strictly after since, tombstones included, oldest first.
	SelectUpdatedSince(ctx context.Context, owner, table string, since time.Time) ([]models.Record, error)

	// Search returns the owner's live rows whose fields contain text.
	Search(ctx context.Context, owner, table, text string) ([]models.Record, error)
}
