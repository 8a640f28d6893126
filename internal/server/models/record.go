package models

import "time"

// Record is one synced row as stored and as sent over the wire. The id is
// client-generated; (table, id) is the primary key and upserts fully
// replace the stored row. A non-nil DeletedAt marks a tombstone, which is
// kept and served to clients so deletions propagate.
type Record struct {
	ID        string         `json:"id"`
	Owner     string         `json:"owner"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt *time.Time     `json:"deleted_at,omitempty"`
	Fields    map[string]any `json:"fields"`
}
