package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/dtodo/internal/client/client"
	"github.com/dmitrijs2005/dtodo/internal/client/models"
)

// fakeAPI is an in-memory backend behind the client.Client contract.
type fakeAPI struct {
	mu      sync.Mutex
	tasks   map[string][]*models.Task
	nextID  int64
	pingErr error
	closed  bool

	exportErr error
}

func newFakeAPI() *fakeAPI { return &fakeAPI{tasks: map[string][]*models.Task{}} }

func (f *fakeAPI) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
func (f *fakeAPI) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}
func (f *fakeAPI) Challenge(context.Context, string) (string, string, error) {
	return "", "", client.ErrUnauthorized
}
func (f *fakeAPI) RegisterUser(_ context.Context, key string, _ *models.WalletProof) (*models.User, error) {
	return &models.User{ID: 1, IdentityKey: strings.ToLower(key)}, nil
}
func (f *fakeAPI) FetchTasks(_ context.Context, key string) ([]*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Task, 0, len(f.tasks[key]))
	for _, t := range f.tasks[key] {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}
func (f *fakeAPI) AddTask(_ context.Context, key, text string) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t := &models.Task{ID: f.nextID, Text: text, CreatedAt: time.Now()}
	f.tasks[key] = append(f.tasks[key], t)
	return t, nil
}
func (f *fakeAPI) CompleteTask(_ context.Context, key string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks[key] {
		if t.ID == id {
			now := time.Now()
			t.Completed, t.CompletedAt = true, &now
		}
	}
	return nil
}
func (f *fakeAPI) ExportTasks(_ context.Context, key string) (*models.Export, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exportErr != nil {
		return nil, f.exportErr
	}
	return &models.Export{
		URL:       "https://s3.example/exports/x.json",
		ObjectKey: "exports/" + key + "/x.json",
		Count:     len(f.tasks[key]),
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}
func (f *fakeAPI) ClearSession() {}

var _ client.Client = (*fakeAPI)(nil)

// captureOutput swaps printlnFn for a recorder.
func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var mu sync.Mutex
	lines := []string{}
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func joined(lines *[]string) string {
	return strings.Join(*lines, "\n")
}
