package grpc

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/dtodo/internal/common"
	"github.com/dmitrijs2005/dtodo/internal/identity"
	"github.com/dmitrijs2005/dtodo/internal/logging"
	"github.com/dmitrijs2005/dtodo/internal/server/auth"
	"github.com/dmitrijs2005/dtodo/internal/server/models"
	"github.com/dmitrijs2005/dtodo/internal/server/services"
)

const (
	testSecret = "secret"
	walletA    = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	walletB    = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

type fakeUsers struct {
	mu          sync.Mutex
	users       map[string]*models.User
	registerErr error
	refreshErr  error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]*models.User{}}
}

func (f *fakeUsers) Scheme() identity.Scheme { return identity.WalletScheme{} }

func (f *fakeUsers) Challenge(ctx context.Context, key string) (*services.Challenge, error) {
	key, err := f.Scheme().Normalize(key)
	if err != nil {
		return nil, err
	}
	return &services.Challenge{Token: "challenge-token", Message: identity.LoginMessage(key, "n")}, nil
}

func (f *fakeUsers) Register(ctx context.Context, key string, proof *services.WalletProof) (*models.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	key, err := f.Scheme().Normalize(key)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[key]; ok {
		return u, nil
	}
	u := &models.User{ID: int64(len(f.users) + 1), IdentityKey: key, CreatedAt: time.Now()}
	f.users[key] = u
	return u, nil
}

func (f *fakeUsers) IssueTokens(ctx context.Context, user *models.User) (*services.TokenPair, error) {
	access, err := auth.GenerateToken(user.IdentityKey, []byte(testSecret), time.Minute)
	if err != nil {
		return nil, err
	}
	return &services.TokenPair{AccessToken: access, RefreshToken: "refresh-" + user.IdentityKey}, nil
}

func (f *fakeUsers) RefreshToken(ctx context.Context, token string) (*services.TokenPair, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	if token != "refresh-"+walletA {
		return nil, common.ErrorUnauthorized
	}
	return f.IssueTokens(ctx, &models.User{IdentityKey: walletA})
}

type fakeTasks struct {
	mu    sync.Mutex
	tasks []*models.Task
	err   error
}

func (f *fakeTasks) List(ctx context.Context, key string) ([]*models.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Task{}
	for _, t := range f.tasks {
		if t.OwnerIdentityKey == key {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTasks) Add(ctx context.Context, key string, text string) (*models.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &models.Task{ID: int64(len(f.tasks) + 1), OwnerIdentityKey: key, Text: text, CreatedAt: time.Now()}
	f.tasks = append(f.tasks, t)
	cp := *t
	return &cp, nil
}

func (f *fakeTasks) Complete(ctx context.Context, key string, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.ID == id && t.OwnerIdentityKey == key {
			now := time.Now()
			t.Completed = true
			t.CompletedAt = &now
		}
	}
	return nil
}

type fakeExports struct {
	err error
	got string
}

func (f *fakeExports) Export(ctx context.Context, key string) (*services.Export, error) {
	f.got = key
	if f.err != nil {
		return nil, f.err
	}
	return &services.Export{ObjectKey: "exports/" + key + "/x.json", URL: "https://example.test/x", Count: 1}, nil
}

func newTestServer() (*GRPCServer, *fakeUsers, *fakeTasks, *fakeExports) {
	u, tk, ex := newFakeUsers(), &fakeTasks{}, &fakeExports{}
	return NewGRPCServer("127.0.0.1:0", nopLogger{}, u, tk, ex, testSecret), u, tk, ex
}
