// Package users declares the repository contract for registered principals.
package users

import (
	"context"

	"github.com/dmitrijs2005/dtodo/internal/server/models"
)

type Repository interface {
	// Create inserts a user for the given identity key. A concurrent insert
	// of the same key surfaces as common.ErrDuplicateIdentity.
	Create(ctx context.Context, identityKey string) (*models.User, error)
	GetByIdentityKey(ctx context.Context, identityKey string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}
