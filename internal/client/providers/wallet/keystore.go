// Package wallet implements a local Ethereum-style wallet: secp256k1 keys
// sealed in the client's SQLite keystore and an identity provider that
// signs login challenges with them.
package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/dmitrijs2005/dtodo/internal/client/repositories/walletkeys"
	"github.com/dmitrijs2005/dtodo/internal/common"
	"github.com/dmitrijs2005/dtodo/internal/cryptox"
	"github.com/dmitrijs2005/dtodo/internal/identity"
)

var (
	ErrWrongPassphrase = errors.New("wrong passphrase")
	ErrUnknownAccount  = errors.New("account is not in the keystore")
	ErrInvalidKey      = errors.New("invalid private key")
)

// generateKey is a test seam.
var generateKey = secp256k1.GeneratePrivateKey

type Keystore struct {
	repo walletkeys.Repository
}

func NewKeystore(repo walletkeys.Repository) *Keystore {
	return &Keystore{repo: repo}
}

// Create generates a key, seals it with passphrase and returns its address.
func (k *Keystore) Create(ctx context.Context, passphrase []byte) (string, error) {
	priv, err := generateKey()
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	defer priv.Zero()
	return k.store(ctx, priv, passphrase)
}

// Import seals an existing hex encoded private key.
func (k *Keystore) Import(ctx context.Context, hexKey string, passphrase []byte) (string, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil || len(raw) != secp256k1.PrivKeyBytesLen {
		return "", ErrInvalidKey
	}
	defer common.WipeByteArray(raw)

	priv := secp256k1.PrivKeyFromBytes(raw)
	defer priv.Zero()
	if priv.Key.IsZero() {
		return "", ErrInvalidKey
	}
	return k.store(ctx, priv, passphrase)
}

func (k *Keystore) store(ctx context.Context, priv *secp256k1.PrivateKey, passphrase []byte) (string, error) {
	address := identity.AddressFromPublicKey(priv.PubKey())

	raw := priv.Serialize()
	defer common.WipeByteArray(raw)

	sealed, err := cryptox.Seal(raw, passphrase)
	if err != nil {
		return "", err
	}
	if err := k.repo.Save(ctx, address, sealed); err != nil {
		return "", err
	}
	return address, nil
}

// Unlock opens the sealed key of address.
func (k *Keystore) Unlock(ctx context.Context, address string, passphrase []byte) (*secp256k1.PrivateKey, error) {
	sealed, err := k.repo.Get(ctx, strings.ToLower(address))
	if errors.Is(err, common.ErrorNotFound) {
		return nil, ErrUnknownAccount
	}
	if err != nil {
		return nil, err
	}

	raw, err := cryptox.Open(sealed, passphrase)
	if errors.Is(err, cryptox.ErrDecrypt) {
		return nil, ErrWrongPassphrase
	}
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(raw)

	priv := secp256k1.PrivKeyFromBytes(raw)
	if identity.AddressFromPublicKey(priv.PubKey()) != strings.ToLower(address) {
		priv.Zero()
		return nil, ErrInvalidKey
	}
	return priv, nil
}

// Has reports whether address has a stored key.
func (k *Keystore) Has(ctx context.Context, address string) (bool, error) {
	_, err := k.repo.Get(ctx, strings.ToLower(address))
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (k *Keystore) Addresses(ctx context.Context) ([]string, error) {
	return k.repo.Addresses(ctx)
}

func (k *Keystore) Remove(ctx context.Context, address string) error {
	return k.repo.Delete(ctx, strings.ToLower(address))
}
