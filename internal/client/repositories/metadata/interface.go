// Package metadata stores small client-side settings (the last selected
// identity, the identity scheme it belongs to) in the local SQLite database.
package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeySelectedAccount = "selected_account"
	KeySelectedScheme  = "selected_scheme"
)

type Repository interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
