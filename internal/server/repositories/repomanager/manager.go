package repomanager

import (
	"context"
	"database/sql"

	"github.com/offlinehq/tidesync/internal/dbx"
	"github.com/offlinehq/tidesync/internal/server/repositories/records"
	"github.com/offlinehq/tidesync/internal/server/repositories/refreshtokens"
	"github.com/offlinehq/tidesync/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Records(db dbx.DBTX) records.Repository
}
