package walletkeys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dtodo/internal/common"
	"github.com/dmitrijs2005/dtodo/internal/cryptox"
	"github.com/dmitrijs2005/dtodo/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, address string, key *cryptox.Sealed) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallet_keys (address, salt, nonce, ciphertext) VALUES (?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET salt = excluded.salt, nonce = excluded.nonce, ciphertext = excluded.ciphertext
	`, address, key.Salt, key.Nonce, key.Ciphertext)
	if err != nil {
		return fmt.Errorf("failed to save wallet key %s: %w", address, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, address string) (*cryptox.Sealed, error) {
	s := &cryptox.Sealed{}
	err := r.db.QueryRowContext(ctx,
		`SELECT salt, nonce, ciphertext FROM wallet_keys WHERE address = ?`, address).
		Scan(&s.Salt, &s.Nonce, &s.Ciphertext)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet key %s: %w", address, err)
	}
	return s, nil
}

func (r *SQLiteRepository) Addresses(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT address FROM wallet_keys ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet keys: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("failed to scan wallet key row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wallet keys: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, address string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM wallet_keys WHERE address = ?`, address); err != nil {
		return fmt.Errorf("failed to delete wallet key %s: %w", address, err)
	}
	return nil
}
