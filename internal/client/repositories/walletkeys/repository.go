// Package walletkeys persists the client's encrypted wallet keys.
package walletkeys

import (
	"context"

	"github.com/dmitrijs2005/dtodo/internal/cryptox"
)

// Repository stores one sealed secp256k1 private key per wallet address.
type Repository interface {
	Save(ctx context.Context, address string, key *cryptox.Sealed) error
	// Get returns common.ErrorNotFound when the address is unknown.
	Get(ctx context.Context, address string) (*cryptox.Sealed, error)
	// Addresses lists stored addresses in creation order.
	Addresses(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, address string) error
}
