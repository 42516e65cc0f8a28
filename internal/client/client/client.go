package client

import (
	"context"

	"github.com/dmitrijs2005/dtodo/internal/client/models"
)

// Client is the transport-agnostic contract the client uses to reach the
// dtodo backend. Register stores the issued tokens for later calls.
type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Challenge(ctx context.Context, identityKey string) (token string, message string, err error)
	RegisterUser(ctx context.Context, identityKey string, proof *models.WalletProof) (*models.User, error)
	FetchTasks(ctx context.Context, identityKey string) ([]*models.Task, error)
	AddTask(ctx context.Context, identityKey, text string) (*models.Task, error)
	CompleteTask(ctx context.Context, identityKey string, taskID int64) error
	ExportTasks(ctx context.Context, identityKey string) (*models.Export, error)
	ClearSession()
}
