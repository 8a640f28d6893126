// Package store implements the embedded local store: the sole source of
// truth for reads while offline. All operations are local and synchronous;
// nothing here ever touches the network.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/offlinehq/tidesync/internal/client/models"
	"github.com/offlinehq/tidesync/internal/common"
	"github.com/offlinehq/tidesync/internal/client/store/migrations"
	"github.com/pressly/goose/v3"
)

// timeLayout is a fixed-width UTC timestamp format. Unlike RFC3339Nano it
// never trims trailing zeros, so lexical ordering in SQL matches temporal
// ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore is the sqlite-backed local store. A single handle is shared
// by all feature code and the sync engine; sqlite's per-statement atomicity
// is the only locking required.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Open opens (or creates) the client database at dsn and applies pending
// migrations.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open client db: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// Put upserts a record by id, fully replacing any existing row including
// its tombstone state.
func (s *SQLiteStore) Put(ctx context.Context, table string, rec models.Record) error {
	fields, err := rec.MarshalFields()
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	var deletedAt any
	if rec.DeletedAt != nil {
		deletedAt = formatTime(*rec.DeletedAt)
	}

	query := `INSERT INTO records (table_name, id, owner, updated_at, deleted_at, fields)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (table_name, id) DO UPDATE SET
			owner = excluded.owner,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at,
			fields = excluded.fields`

	_, err = s.db.ExecContext(ctx, query, table, rec.ID, rec.Owner, formatTime(rec.UpdatedAt), deletedAt, string(fields))
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

// Get returns the record with the given id, tombstoned or not. Callers that
// only want live rows must check Deleted themselves.
func (s *SQLiteStore) Get(ctx context.Context, table, id string) (*models.Record, error) {
	query := `SELECT id, owner, updated_at, deleted_at, fields
		FROM records WHERE table_name = ? AND id = ?`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, table, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select record: %w", err)
	}
	return rec, nil
}

// List returns all live records of a table, most recently updated first.
func (s *SQLiteStore) List(ctx context.Context, table string) ([]models.Record, error) {
	query := `SELECT id, owner, updated_at, deleted_at, fields
		FROM records
		WHERE table_name = ? AND deleted_at IS NULL
		ORDER BY updated_at DESC`

	return s.queryRecords(ctx, query, table)
}

// Search returns live records whose payload contains the given substring,
// most recently updated first.
func (s *SQLiteStore) Search(ctx context.Context, table, text string) ([]models.Record, error) {
	query := `SELECT id, owner, updated_at, deleted_at, fields
		FROM records
		WHERE table_name = ? AND deleted_at IS NULL AND fields LIKE ?
		ORDER BY updated_at DESC`

	return s.queryRecords(ctx, query, table, "%"+text+"%")
}

// Remove hard-deletes a row. Domain data is only ever soft-deleted; this
// exists for engine bookkeeping.
func (s *SQLiteStore) Remove(ctx context.Context, table, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE table_name = ? AND id = ?`, table, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// MaxUpdatedAt returns the sync cursor for a table: the greatest updated_at
// among live local rows. The zero time means the table is cold and the next
// pull must hydrate it fully.
func (s *SQLiteStore) MaxUpdatedAt(ctx context.Context, table string) (time.Time, error) {
	var max sql.NullString
	query := `SELECT MAX(updated_at) FROM records WHERE table_name = ? AND deleted_at IS NULL`

	if err := s.db.QueryRowContext(ctx, query, table).Scan(&max); err != nil {
		return time.Time{}, fmt.Errorf("failed to select cursor: %w", err)
	}
	if !max.Valid {
		return time.Time{}, nil
	}

	t, err := parseTime(max.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse cursor: %w", err)
	}
	return t, nil
}

// Count returns the number of live records in a table.
func (s *SQLiteStore) Count(ctx context.Context, table string) (int, error) {
	var cnt int
	query := `SELECT COUNT(*) FROM records WHERE table_name = ? AND deleted_at IS NULL`
	if err := s.db.QueryRowContext(ctx, query, table).Scan(&cnt); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return cnt, nil
}

// Clear removes every row of every table. Used on sign-out.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var rec models.Record
	var updatedAt string
	var deletedAt sql.NullString
	var fields []byte

	if err := row.Scan(&rec.ID, &rec.Owner, &updatedAt, &deletedAt, &fields); err != nil {
		return nil, err
	}

	t, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	rec.UpdatedAt = t

	if deletedAt.Valid {
		d, err := parseTime(deletedAt.String)
		if err != nil {
			return nil, err
		}
		rec.DeletedAt = &d
	}

	if err := rec.UnmarshalFields(fields); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteStore) queryRecords(ctx context.Context, query string, args ...any) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
