package tasks

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/dtodo/internal/dbx"
	"github.com/dmitrijs2005/dtodo/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*models.Task, error) {
	t := &models.Task{}
	var completedAt sql.NullTime

	if err := s.Scan(&t.ID, &t.OwnerIdentityKey, &t.Text, &t.Completed, &t.CreatedAt, &completedAt); err != nil {
		return nil, err
	}

	if completedAt.Valid {
		ts := completedAt.Time
		t.CompletedAt = &ts
	}

	return t, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, owner string) ([]*models.Task, error) {

	query :=
		`SELECT id, owner_identity_key, text, completed, created_at, completed_at
		 FROM tasks
		 WHERE owner_identity_key = $1
		 ORDER BY id
		 `

	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Create(ctx context.Context, owner string, text string) (*models.Task, error) {

	query :=
		`INSERT INTO tasks (owner_identity_key, text, completed, created_at)
		 VALUES ($1, $2, FALSE, now())
		 RETURNING id, owner_identity_key, text, completed, created_at, completed_at
		 `

	t, err := scanTask(r.db.QueryRowContext(ctx, query, owner, text))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return t, nil
}

// Complete folds the ownership check into the WHERE clause so a foreign or
// unknown id touches nothing.
func (r *PostgresRepository) Complete(ctx context.Context, owner string, id int64) (int64, error) {

	query :=
		`UPDATE tasks SET completed = TRUE, completed_at = now()
		 WHERE id = $1 AND owner_identity_key = $2
		 `

	res, err := r.db.ExecContext(ctx, query, id, owner)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return n, nil
}
