// Package session is the email identity provider. It stands in for an
// OAuth session: signing in asserts an email address, signing out drops it.
package session

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/dtodo/internal/client/providers"
	"github.com/dmitrijs2005/dtodo/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/dtodo/internal/common"
	"github.com/dmitrijs2005/dtodo/internal/identity"
)

var ErrNoSession = errors.New("not signed in, use 'login <email>'")

type Provider struct {
	hub    *providers.Hub
	scheme identity.EmailScheme
}

func NewProvider(meta metadata.Repository) *Provider {
	return &Provider{hub: providers.NewHub(meta, common.SchemeEmail)}
}

func (p *Provider) CurrentIdentity() (string, bool) {
	return p.hub.CurrentIdentity()
}

func (p *Provider) Subscribe(fn func(accounts []string)) func() {
	return p.hub.Subscribe(fn)
}

func (p *Provider) Restore(ctx context.Context) (string, bool, error) {
	return p.hub.Restore(ctx)
}

// RequestAccounts returns the signed-in email. There is nothing to prompt
// for, so without a session it fails with ErrNoSession.
func (p *Provider) RequestAccounts(context.Context) ([]string, error) {
	email, ok := p.hub.CurrentIdentity()
	if !ok {
		return nil, ErrNoSession
	}
	return []string{email}, nil
}

// SignIn starts a session for email and notifies subscribers.
func (p *Provider) SignIn(ctx context.Context, email string) error {
	normalized, err := p.scheme.Normalize(email)
	if err != nil {
		return err
	}
	return p.hub.Select(ctx, []string{normalized}, true)
}

// SignOut ends the session and notifies subscribers.
func (p *Provider) SignOut(ctx context.Context) error {
	return p.hub.Select(ctx, nil, true)
}
