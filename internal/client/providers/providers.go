// Package providers holds what the wallet and session identity providers
// share: the subscriber hub and persistence of the selected identity.
package providers

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/dmitrijs2005/dtodo/internal/client/repositories/metadata"
)

var ErrNoAccount = errors.New("no account available")

// Signer signs a wallet login message with the key of address.
type Signer interface {
	Sign(ctx context.Context, address, message string) (string, error)
}

// Hub keeps the provider's current accounts and fans changes out to
// subscribers. The first account is the current identity. The selection is
// persisted under metadata.KeySelectedAccount, tagged with the scheme, so a
// later start can reconnect without asking.
type Hub struct {
	meta   metadata.Repository
	scheme string

	mu       sync.Mutex
	accounts []string
	subs     map[uint64]func([]string)
	nextSub  uint64
}

func NewHub(meta metadata.Repository, scheme string) *Hub {
	return &Hub{meta: meta, scheme: scheme, subs: make(map[uint64]func([]string))}
}

// CurrentIdentity returns the selected account, if any.
func (h *Hub) CurrentIdentity() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.accounts) == 0 {
		return "", false
	}
	return h.accounts[0], true
}

// Accounts returns a copy of the current accounts.
func (h *Hub) Accounts() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.accounts)
}

// Subscribe registers fn for account changes. The returned func removes it
// and is safe to call more than once.
func (h *Hub) Subscribe(fn func(accounts []string)) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Select replaces the current accounts and persists the selection. When
// notify is set, subscribers are called synchronously, outside the lock.
func (h *Hub) Select(ctx context.Context, accounts []string, notify bool) error {
	h.mu.Lock()
	h.accounts = slices.Clone(accounts)
	var fns []func([]string)
	if notify {
		for _, fn := range h.subs {
			fns = append(fns, fn)
		}
	}
	h.mu.Unlock()

	err := h.persist(ctx, accounts)

	for _, fn := range fns {
		fn(slices.Clone(accounts))
	}
	return err
}

func (h *Hub) persist(ctx context.Context, accounts []string) error {
	if h.meta == nil {
		return nil
	}
	if len(accounts) == 0 {
		if err := h.meta.Delete(ctx, metadata.KeySelectedAccount); err != nil {
			return err
		}
		return h.meta.Delete(ctx, metadata.KeySelectedScheme)
	}
	if err := h.meta.Set(ctx, metadata.KeySelectedAccount, accounts[0]); err != nil {
		return err
	}
	return h.meta.Set(ctx, metadata.KeySelectedScheme, h.scheme)
}

// Restore loads the persisted selection without notifying subscribers. A
// selection made under a different scheme is ignored.
func (h *Hub) Restore(ctx context.Context) (string, bool, error) {
	if h.meta == nil {
		return "", false, nil
	}
	scheme, ok, err := h.meta.Get(ctx, metadata.KeySelectedScheme)
	if err != nil || !ok || scheme != h.scheme {
		return "", false, err
	}
	account, ok, err := h.meta.Get(ctx, metadata.KeySelectedAccount)
	if err != nil || !ok || account == "" {
		return "", false, err
	}

	h.mu.Lock()
	h.accounts = []string{account}
	h.mu.Unlock()
	return account, true, nil
}
