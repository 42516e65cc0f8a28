// Package tasks declares the repository contract for to-do items. Every
// operation is scoped by the owner's identity key.
package tasks

import (
	"context"

	"github.com/dmitrijs2005/dtodo/internal/server/models"
)

type Repository interface {
	// ListByOwner returns all tasks of owner ordered by id, completed ones included.
	ListByOwner(ctx context.Context, owner string) ([]*models.Task, error)

	// Create inserts an incomplete task and returns the stored row.
	Create(ctx context.Context, owner string, text string) (*models.Task, error)

	// Complete marks the task done when it belongs to owner and reports the
	// number of rows touched. Zero is not an error.
	Complete(ctx context.Context, owner string, id int64) (int64, error)
}
