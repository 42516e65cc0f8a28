package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/dtodo/internal/common"
	"github.com/dmitrijs2005/dtodo/internal/identity"
	"github.com/dmitrijs2005/dtodo/internal/logging"
	"github.com/dmitrijs2005/dtodo/internal/server/auth"
	"github.com/dmitrijs2005/dtodo/internal/server/models"
	"github.com/dmitrijs2005/dtodo/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "secret"
	walletA    = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	walletB    = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

type fakeUsers struct {
	registerErr error
}

func (f *fakeUsers) Scheme() identity.Scheme { return identity.WalletScheme{} }

func (f *fakeUsers) Challenge(ctx context.Context, key string) (*services.Challenge, error) {
	key, err := f.Scheme().Normalize(key)
	if err != nil {
		return nil, err
	}
	return &services.Challenge{Token: "ch", Message: identity.LoginMessage(key, "n")}, nil
}

func (f *fakeUsers) Register(ctx context.Context, key string, proof *services.WalletProof) (*models.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	key, err := f.Scheme().Normalize(key)
	if err != nil {
		return nil, err
	}
	return &models.User{ID: 1, IdentityKey: key, CreatedAt: time.Now()}, nil
}

func (f *fakeUsers) IssueTokens(ctx context.Context, u *models.User) (*services.TokenPair, error) {
	tok, err := auth.GenerateToken(u.IdentityKey, []byte(testSecret), time.Minute)
	if err != nil {
		return nil, err
	}
	return &services.TokenPair{AccessToken: tok, RefreshToken: "r"}, nil
}

func (f *fakeUsers) RefreshToken(ctx context.Context, token string) (*services.TokenPair, error) {
	if token != "r" {
		return nil, common.ErrorUnauthorized
	}
	return &services.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil
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
	var out []*models.Task
	for _, t := range f.tasks {
		if t.OwnerIdentityKey == key {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTasks) Add(ctx context.Context, key, text string) (*models.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &models.Task{ID: int64(len(f.tasks) + 1), OwnerIdentityKey: key, Text: text, CreatedAt: time.Now()}
	f.tasks = append(f.tasks, t)
	return t, nil
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
			t.Completed, t.CompletedAt = true, &now
		}
	}
	return nil
}

type fakeExports struct{ err error }

func (f *fakeExports) Export(ctx context.Context, key string) (*services.Export, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.Export{URL: "https://example.test/" + key, ObjectKey: "k", Count: 0}, nil
}

func newTestAPI(t *testing.T) (http.Handler, *fakeUsers, *fakeTasks, *fakeExports) {
	t.Helper()
	u, tk, ex := &fakeUsers{}, &fakeTasks{}, &fakeExports{}
	s := NewServer(":0", logging.Discard(), u, tk, ex, testSecret, []string{"http://localhost:3000"})
	return s.Handler(), u, tk, ex
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func tokenFor(t *testing.T, key string) string {
	t.Helper()
	tok, err := auth.GenerateToken(key, []byte(testSecret), time.Minute)
	require.NoError(t, err)
	return tok
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out["error"]
}

func TestHealthz(t *testing.T) {
	h, _, _, _ := newTestAPI(t)
	rec := do(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestRegister(t *testing.T) {
	h, users, _, _ := newTestAPI(t)

	rec := do(t, h, http.MethodPost, "/api/users", "", map[string]string{"identity_key": walletA})
	require.Equal(t, http.StatusOK, rec.Code)

	var out userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, walletA, out.IdentityKey)
	assert.NotEmpty(t, out.AccessToken)

	rec = do(t, h, http.MethodPost, "/api/users", "", map[string]string{"identity_key": "bad"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorBody(t, rec), "invalid identity")

	users.registerErr = fmt.Errorf("%w: down", common.ErrPersistenceUnavailable)
	rec = do(t, h, http.MethodPost, "/api/users", "", map[string]string{"identity_key": walletA})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	users.registerErr = fmt.Errorf("%w: bad signature", common.ErrorUnauthorized)
	rec = do(t, h, http.MethodPost, "/api/users", "", map[string]string{"identity_key": walletA})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegister_MalformedBody(t *testing.T) {
	h, _, _, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChallenge(t *testing.T) {
	h, _, _, _ := newTestAPI(t)

	rec := do(t, h, http.MethodPost, "/api/challenge", "", map[string]string{"identity_key": walletA})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Nonce")
}

func TestRefresh(t *testing.T) {
	h, _, _, _ := newTestAPI(t)

	rec := do(t, h, http.MethodPost, "/api/tokens/refresh", "", map[string]string{"refresh_token": "r"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"access_token":"a2","refresh_token":"r2"}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/tokens/refresh", "", map[string]string{"refresh_token": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/tokens/refresh", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTasks_RequireBearer(t *testing.T) {
	h, _, _, _ := newTestAPI(t)

	rec := do(t, h, http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing token", errorBody(t, rec))

	rec = do(t, h, http.MethodGet, "/api/tasks", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", errorBody(t, rec))

	expired, err := auth.GenerateToken(walletA, []byte(testSecret), -time.Minute)
	require.NoError(t, err)
	rec = do(t, h, http.MethodGet, "/api/tasks", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token expired", errorBody(t, rec))
}

func TestTasks_Flow(t *testing.T) {
	h, _, _, _ := newTestAPI(t)
	tokA, tokB := tokenFor(t, walletA), tokenFor(t, walletB)

	rec := do(t, h, http.MethodGet, "/api/tasks", tokA, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tasks":[]}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/tasks", tokA, map[string]string{"text": "buy milk"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var added models.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	assert.Equal(t, "buy milk", added.Text)

	// B completing A's task: accepted, nothing changes
	rec = do(t, h, http.MethodPost, fmt.Sprintf("/api/tasks/%d/complete", added.ID), tokB, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/tasks", tokA, nil)
	var list struct{ Tasks []models.Task }
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Tasks, 1)
	assert.False(t, list.Tasks[0].Completed)

	rec = do(t, h, http.MethodPost, fmt.Sprintf("/api/tasks/%d/complete", added.ID), tokA, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/tasks", tokA, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.True(t, list.Tasks[0].Completed)
}

func TestTasks_ExplicitKeyMustMatchToken(t *testing.T) {
	h, _, _, _ := newTestAPI(t)
	tokA := tokenFor(t, walletA)

	rec := do(t, h, http.MethodGet, "/api/tasks?identity_key="+walletB, tokA, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/tasks?identity_key=nope", tokA, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/tasks?identity_key="+strings.ToUpper(walletA[2:]), tokA, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/tasks?identity_key=0x"+strings.ToUpper(walletA[2:]), tokA, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCompleteTask_BadID(t *testing.T) {
	h, _, _, _ := newTestAPI(t)

	rec := do(t, h, http.MethodPost, "/api/tasks/abc/complete", tokenFor(t, walletA), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTasks_StoreUnavailable(t *testing.T) {
	h, _, tasks, _ := newTestAPI(t)
	tasks.err = fmt.Errorf("%w: down", common.ErrPersistenceUnavailable)

	rec := do(t, h, http.MethodGet, "/api/tasks", tokenFor(t, walletA), nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestExport(t *testing.T) {
	h, _, _, exports := newTestAPI(t)

	rec := do(t, h, http.MethodPost, "/api/tasks/export", tokenFor(t, walletA), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://example.test/"+walletA)

	exports.err = common.ErrExportDisabled
	rec = do(t, h, http.MethodPost, "/api/tasks/export", tokenFor(t, walletA), nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h, _, _, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
