package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/dtodo/internal/dbx"
	"github.com/dmitrijs2005/dtodo/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/dtodo/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/dtodo/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either the pool or a
// transaction, so services can compose several calls atomically.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Tasks(db dbx.DBTX) tasks.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
