package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/dtodo/internal/identity"
	"github.com/dmitrijs2005/dtodo/internal/server/models"
	"github.com/dmitrijs2005/dtodo/internal/server/repositories/repomanager"
)

// TaskService implements the owner-scoped task actions. Every method
// normalizes the identity key first and fails with common.ErrInvalidIdentity
// without touching the database when it is malformed.
type TaskService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	scheme      identity.Scheme
}

func NewTaskService(db *sql.DB, m repomanager.RepositoryManager, scheme identity.Scheme) *TaskService {
	return &TaskService{db: db, repomanager: m, scheme: scheme}
}

// List returns every task of the owner, completed ones included, by id.
func (s *TaskService) List(ctx context.Context, identityKey string) ([]*models.Task, error) {
	key, err := s.scheme.Normalize(identityKey)
	if err != nil {
		return nil, err
	}

	tasks, err := s.repomanager.Tasks(s.db).ListByOwner(ctx, key)
	if err != nil {
		return nil, unavailable(err)
	}
	return tasks, nil
}

// Add stores text as a new incomplete task. The text is taken as is.
func (s *TaskService) Add(ctx context.Context, identityKey string, text string) (*models.Task, error) {
	key, err := s.scheme.Normalize(identityKey)
	if err != nil {
		return nil, err
	}

	task, err := s.repomanager.Tasks(s.db).Create(ctx, key, text)
	if err != nil {
		return nil, unavailable(err)
	}
	return task, nil
}

// Complete marks a task done. Unknown ids and tasks of other owners are
// silently ignored; completing an already completed task moves its
// completion timestamp.
func (s *TaskService) Complete(ctx context.Context, identityKey string, taskID int64) error {
	key, err := s.scheme.Normalize(identityKey)
	if err != nil {
		return err
	}

	if _, err := s.repomanager.Tasks(s.db).Complete(ctx, key, taskID); err != nil {
		return unavailable(err)
	}
	return nil
}
