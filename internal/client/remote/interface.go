// Package remote implements the client side of the remote store boundary:
// upsert-by-id, owner-scoped delta selects, a schema-wide change-event
// subscription, and the auth and attachment calls around them.
package remote

import (
	"context"
	"errors"
	"time"

	"github.com/offlinehq/tidesync/internal/client/models"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRejected     = errors.New("rejected by server")
)

// ChangeEvent is one remote change notification. The feed is schema-wide;
// the payload names the row that changed but subscribers are expected to
// re-pull rather than apply events directly.
type ChangeEvent struct {
	Table  string    `json:"table"`
	ID     string    `json:"id"`
	Action string    `json:"action"`
	At     time.Time `json:"at"`
}

// Client is the remote-store contract consumed by the engine and the CLI.
// *HTTPClient is the production implementation.
type Client interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) error
	Ping(ctx context.Context) error

	Upsert(ctx context.Context, table string, rec models.Record) error
	SelectUpdatedSince(ctx context.Context, table string, since time.Time) ([]models.Record, error)
	Search(ctx context.Context, table, text string) ([]models.Record, error)

	Subscribe(ctx context.Context) (<-chan ChangeEvent, error)

	PresignPut(ctx context.Context) (key, url string, err error)
	PresignGet(ctx context.Context, key string) (url string, err error)
}
