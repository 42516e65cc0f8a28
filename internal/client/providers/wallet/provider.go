package wallet

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/dmitrijs2005/dtodo/internal/client/providers"
	"github.com/dmitrijs2005/dtodo/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/dtodo/internal/common"
	"github.com/dmitrijs2005/dtodo/internal/identity"
)

// PassphraseFunc asks the user for a passphrase. The caller wipes the
// returned slice.
type PassphraseFunc func(prompt string) ([]byte, error)

// Provider exposes the keystore as an identity provider. Keys are unlocked
// on first use and kept in memory until Disconnect.
type Provider struct {
	hub        *providers.Hub
	keystore   *Keystore
	passphrase PassphraseFunc

	mu       sync.Mutex
	unlocked map[string]*secp256k1.PrivateKey
}

func NewProvider(ks *Keystore, meta metadata.Repository, passphrase PassphraseFunc) *Provider {
	return &Provider{
		hub:        providers.NewHub(meta, common.SchemeWallet),
		keystore:   ks,
		passphrase: passphrase,
		unlocked:   make(map[string]*secp256k1.PrivateKey),
	}
}

func (p *Provider) CurrentIdentity() (string, bool) {
	return p.hub.CurrentIdentity()
}

func (p *Provider) Subscribe(fn func(accounts []string)) func() {
	return p.hub.Subscribe(fn)
}

// Restore reselects the persisted account if its key is still stored.
func (p *Provider) Restore(ctx context.Context) (string, bool, error) {
	address, ok, err := p.hub.Restore(ctx)
	if err != nil || !ok {
		return "", false, err
	}
	has, err := p.keystore.Has(ctx, address)
	if err != nil {
		return "", false, err
	}
	if !has {
		return "", false, p.hub.Select(ctx, nil, false)
	}
	return address, true, nil
}

// RequestAccounts connects the wallet. With no stored key a new one is
// created; otherwise the current or the oldest stored account is unlocked.
func (p *Provider) RequestAccounts(ctx context.Context) ([]string, error) {
	address, ok := p.hub.CurrentIdentity()
	if !ok {
		addrs, err := p.keystore.Addresses(ctx)
		if err != nil {
			return nil, err
		}
		if len(addrs) == 0 {
			address, err = p.create(ctx)
			if err != nil {
				return nil, err
			}
		} else {
			address = addrs[0]
		}
	}

	if _, err := p.unlock(ctx, address); err != nil {
		return nil, err
	}
	if err := p.hub.Select(ctx, []string{address}, false); err != nil {
		return nil, err
	}
	return []string{address}, nil
}

// NewAccount creates a key and switches to it.
func (p *Provider) NewAccount(ctx context.Context) (string, error) {
	address, err := p.create(ctx)
	if err != nil {
		return "", err
	}
	return address, p.Switch(ctx, address)
}

// Import stores an existing private key without switching to it.
func (p *Provider) Import(ctx context.Context, hexKey string) (string, error) {
	pass, err := p.passphrase("Passphrase for the imported key")
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pass)
	return p.keystore.Import(ctx, hexKey, pass)
}

func (p *Provider) create(ctx context.Context) (string, error) {
	pass, err := p.passphrase("Passphrase for the new wallet key")
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pass)

	address, err := p.keystore.Create(ctx, pass)
	if err != nil {
		return "", err
	}
	key, err := p.keystore.Unlock(ctx, address, pass)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	p.unlocked[address] = key
	p.mu.Unlock()
	return address, nil
}

// Switch makes address the current account and notifies subscribers.
func (p *Provider) Switch(ctx context.Context, address string) error {
	address = strings.ToLower(strings.TrimSpace(address))
	if _, err := p.unlock(ctx, address); err != nil {
		return err
	}
	return p.hub.Select(ctx, []string{address}, true)
}

// Disconnect forgets unlocked keys and tells subscribers no account is
// available.
func (p *Provider) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	for a, k := range p.unlocked {
		k.Zero()
		delete(p.unlocked, a)
	}
	p.mu.Unlock()
	return p.hub.Select(ctx, nil, true)
}

// Addresses lists every account in the keystore.
func (p *Provider) Addresses(ctx context.Context) ([]string, error) {
	return p.keystore.Addresses(ctx)
}

// Sign produces a personal_sign signature of message by address.
func (p *Provider) Sign(ctx context.Context, address, message string) (string, error) {
	key, err := p.unlock(ctx, strings.ToLower(address))
	if err != nil {
		return "", err
	}
	return identity.SignMessage(key, message), nil
}

func (p *Provider) unlock(ctx context.Context, address string) (*secp256k1.PrivateKey, error) {
	p.mu.Lock()
	key, ok := p.unlocked[address]
	p.mu.Unlock()
	if ok {
		return key, nil
	}

	has, err := p.keystore.Has(ctx, address)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, ErrUnknownAccount
	}

	pass, err := p.passphrase(fmt.Sprintf("Passphrase for %s", address))
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(pass)

	key, err = p.keystore.Unlock(ctx, address, pass)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.unlocked[address] = key
	p.mu.Unlock()
	return key, nil
}

var _ providers.Signer = (*Provider)(nil)
