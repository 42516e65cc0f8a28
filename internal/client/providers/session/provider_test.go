package session

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/dtodo/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/dtodo/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memMeta map[string]string

func (m memMeta) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}
func (m memMeta) Set(_ context.Context, key, value string) error { m[key] = value; return nil }
func (m memMeta) Delete(_ context.Context, key string) error     { delete(m, key); return nil }

func TestSignInSignOut(t *testing.T) {
	meta := memMeta{}
	p := NewProvider(meta)
	ctx := context.Background()

	_, err := p.RequestAccounts(ctx)
	require.ErrorIs(t, err, ErrNoSession)

	var seen [][]string
	p.Subscribe(func(a []string) { seen = append(seen, a) })

	require.NoError(t, p.SignIn(ctx, "  Alice@Example.COM "))
	accs, err := p.RequestAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@example.com"}, accs)
	assert.Equal(t, "alice@example.com", meta[metadata.KeySelectedAccount])
	assert.Equal(t, "email", meta[metadata.KeySelectedScheme])

	require.NoError(t, p.SignOut(ctx))
	_, ok := p.CurrentIdentity()
	assert.False(t, ok)

	require.Len(t, seen, 2)
	assert.Equal(t, []string{"alice@example.com"}, seen[0])
	assert.Empty(t, seen[1])
}

func TestSignIn_RejectsMalformedEmail(t *testing.T) {
	p := NewProvider(memMeta{})
	called := false
	p.Subscribe(func([]string) { called = true })

	err := p.SignIn(context.Background(), "not-an-email")
	require.ErrorIs(t, err, common.ErrInvalidIdentity)
	assert.False(t, called)
}

func TestRestore(t *testing.T) {
	meta := memMeta{metadata.KeySelectedAccount: "bob@example.com", metadata.KeySelectedScheme: "email"}
	p := NewProvider(meta)

	email, ok, err := p.Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bob@example.com", email)

	cur, ok := p.CurrentIdentity()
	assert.True(t, ok)
	assert.Equal(t, "bob@example.com", cur)
}
