package records

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/offlinehq/tidesync/internal/common"
	"github.com/offlinehq/tidesync/internal/dbx"
	"github.com/offlinehq/tidesync/internal/server/models"
)

// PostgresRepository implements record storage over a dbx.DBTX (*sql.DB or
// *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert replaces the row by (table_name, id). The ON CONFLICT guard keeps
// a row owned by another user untouched; zero rows affected then signals an
// ownership violation.
func (r *PostgresRepository) Upsert(ctx context.Context, table string, rec *models.Record) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("error marshalling fields: %w", err)
	}
	if rec.Fields == nil {
		fields = []byte("{}")
	}

	query := `
		INSERT INTO records (table_name, id, owner, updated_at, deleted_at, fields)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (table_name, id)
		DO UPDATE SET
			owner      = EXCLUDED.owner,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at,
			fields     = EXCLUDED.fields
			WHERE records.owner = EXCLUDED.owner;
	`
	res, err := r.db.ExecContext(ctx, query,
		table, rec.ID, rec.Owner, rec.UpdatedAt, rec.DeletedAt, fields)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorUnauthorized
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) SelectUpdatedSince(ctx context.Context, owner, table string, since time.Time) ([]models.Record, error) {
	query := `
		SELECT id, owner, updated_at, deleted_at, fields
		FROM records
		WHERE owner = $1 AND table_name = $2 AND updated_at > $3
		ORDER BY updated_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, owner, table, since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (r *PostgresRepository) Search(ctx context.Context, owner, table, text string) ([]models.Record, error) {
	query := `
		SELECT id, owner, updated_at, deleted_at, fields
		FROM records
		WHERE owner = $1 AND table_name = $2 AND deleted_at IS NULL
		  AND fields::text ILIKE '%' || $3 || '%'
		ORDER BY updated_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, owner, table, text)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

type sqlRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRecords(rows sqlRows) ([]models.Record, error) {
	var out []models.Record
	for rows.Next() {
		var rec models.Record
		var fields []byte
		if err := rows.Scan(&rec.ID, &rec.Owner, &rec.UpdatedAt, &rec.DeletedAt, &fields); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		if err := json.Unmarshal(fields, &rec.Fields); err != nil {
			return nil, fmt.Errorf("error unmarshalling fields: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}
