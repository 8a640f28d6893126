// Package models defines the client-side data model shared by the local
// store, the mutation queue, and the sync engine.
package models

import (
	"encoding/json"
	"time"
)

// Record is one syncable row. Every record, regardless of table, carries the
// four mandatory sync fields; everything table-specific lives in Fields.
type Record struct {
	// ID is a globally unique identifier, generated on the client at
	// creation time so the record is fully formed before any network call.
	ID string `json:"id"`

	// Owner identifies the owning principal. Every read and write is
	// scoped to this value.
	Owner string `json:"owner"`

	// UpdatedAt is refreshed by the writer on every mutation and is the
	// sole basis for conflict resolution and delta sync.
	UpdatedAt time.Time `json:"updated_at"`

	// DeletedAt is the soft-delete tombstone; nil means live. Rows are
	// never hard-deleted remotely so deletions can propagate via delta
	// sync.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	// Fields holds the table-specific payload.
	Fields map[string]any `json:"fields"`
}

// Deleted reports whether the record is tombstoned.
func (r Record) Deleted() bool {
	return r.DeletedAt != nil
}

// CloneFields returns a shallow copy of Fields so callers can merge partial
// updates without mutating the stored map.
func (r Record) CloneFields() map[string]any {
	out := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		out[k] = v
	}
	return out
}

// MarshalFields serializes Fields for storage. An empty map serializes as
// "{}" so scans never see NULL.
func (r Record) MarshalFields() ([]byte, error) {
	if r.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.Fields)
}

// UnmarshalFields restores Fields from its stored form.
func (r *Record) UnmarshalFields(data []byte) error {
	if len(data) == 0 {
		r.Fields = map[string]any{}
		return nil
	}
	return json.Unmarshal(data, &r.Fields)
}
