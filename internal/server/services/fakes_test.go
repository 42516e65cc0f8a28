package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/dtodo/internal/common"
	"github.com/dmitrijs2005/dtodo/internal/dbx"
	"github.com/dmitrijs2005/dtodo/internal/server/models"
	refreshtokensrepo "github.com/dmitrijs2005/dtodo/internal/server/repositories/refreshtokens"
	tasksrepo "github.com/dmitrijs2005/dtodo/internal/server/repositories/tasks"
	usersrepo "github.com/dmitrijs2005/dtodo/internal/server/repositories/users"
)

// memStore is an in-memory stand-in for the three tables. Every repository
// call counts as one store access.
type memStore struct {
	mu sync.Mutex

	users      map[string]*models.User
	nextUserID int64

	tasks      []*models.Task
	nextTaskID int64

	refresh map[string]*models.RefreshToken

	clock time.Time
	calls int

	// failWith makes every call fail with this error.
	failWith error
	// raceOnCreate simulates a concurrent registration winning the insert.
	raceOnCreate bool
	// failDelete makes refresh token deletion fail.
	failDelete error
	// beforeDelete runs with the lock held right before a refresh token is
	// deleted; tests use it to consume the token from another rotation.
	beforeDelete func()
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]*models.User{},
		refresh: map[string]*models.RefreshToken{},
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) enter() error {
	s.mu.Lock()
	s.calls++
	return s.failWith
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) insertUser(key string) *models.User {
	s.nextUserID++
	u := &models.User{ID: s.nextUserID, IdentityKey: key, CreatedAt: s.tick()}
	s.users[key] = u
	return u
}

func (s *memStore) accessCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeUsersRepo struct{ s *memStore }

func (r *fakeUsersRepo) Create(ctx context.Context, key string) (*models.User, error) {
	err := r.s.enter()
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if r.s.raceOnCreate {
		r.s.raceOnCreate = false
		r.s.insertUser(key)
		return nil, common.ErrDuplicateIdentity
	}
	if _, ok := r.s.users[key]; ok {
		return nil, common.ErrDuplicateIdentity
	}
	u := *r.s.insertUser(key)
	return &u, nil
}

func (r *fakeUsersRepo) GetByIdentityKey(ctx context.Context, key string) (*models.User, error) {
	err := r.s.enter()
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	u, ok := r.s.users[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUsersRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	err := r.s.enter()
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	for _, u := range r.s.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

type fakeTasksRepo struct{ s *memStore }

func (r *fakeTasksRepo) ListByOwner(ctx context.Context, owner string) ([]*models.Task, error) {
	err := r.s.enter()
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]*models.Task, 0)
	for _, t := range r.s.tasks {
		if t.OwnerIdentityKey == owner {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeTasksRepo) Create(ctx context.Context, owner string, text string) (*models.Task, error) {
	err := r.s.enter()
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	r.s.nextTaskID++
	t := &models.Task{ID: r.s.nextTaskID, OwnerIdentityKey: owner, Text: text, CreatedAt: r.s.tick()}
	r.s.tasks = append(r.s.tasks, t)
	cp := *t
	return &cp, nil
}

func (r *fakeTasksRepo) Complete(ctx context.Context, owner string, id int64) (int64, error) {
	err := r.s.enter()
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	for _, t := range r.s.tasks {
		if t.ID == id && t.OwnerIdentityKey == owner {
			now := r.s.tick()
			t.Completed = true
			t.CompletedAt = &now
			return 1, nil
		}
	}
	return 0, nil
}

type fakeRefreshRepo struct{ s *memStore }

func (r *fakeRefreshRepo) Create(ctx context.Context, userID int64, token string, validity time.Duration) error {
	err := r.s.enter()
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	r.s.refresh[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (r *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	err := r.s.enter()
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	rt, ok := r.s.refresh[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *rt
	return &cp, nil
}

func (r *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	err := r.s.enter()
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	if r.s.failDelete != nil {
		return r.s.failDelete
	}
	if r.s.beforeDelete != nil {
		r.s.beforeDelete()
	}
	if _, ok := r.s.refresh[token]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.refresh, token)
	return nil
}

type fakeRepoManager struct{ s *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository          { return &fakeUsersRepo{m.s} }
func (m *fakeRepoManager) Tasks(dbx.DBTX) tasksrepo.Repository          { return &fakeTasksRepo{m.s} }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokensrepo.Repository {
	return &fakeRefreshRepo{m.s}
}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}
