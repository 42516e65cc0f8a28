package controller

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/dtodo/internal/client/models"
)

type fakeProvider struct {
	mu          sync.Mutex
	current     string
	subs        map[int]func([]string)
	next        int
	requestResp []string
	requestErr  error
}

func newFakeProvider(current string) *fakeProvider {
	return &fakeProvider{current: current, subs: map[int]func([]string){}}
}

func (p *fakeProvider) CurrentIdentity() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.current != ""
}

func (p *fakeProvider) Subscribe(fn func([]string)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.next
	p.next++
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

func (p *fakeProvider) RequestAccounts(context.Context) ([]string, error) {
	return p.requestResp, p.requestErr
}

func (p *fakeProvider) subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// emit delivers an account change synchronously, as the real providers do.
func (p *fakeProvider) emit(accounts ...string) {
	p.mu.Lock()
	if len(accounts) > 0 {
		p.current = accounts[0]
	} else {
		p.current = ""
	}
	var fns []func([]string)
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(accounts)
	}
}

// fakeActions models the server: tasks per identity, ownership enforced
// by the completion predicate.
type fakeActions struct {
	mu       sync.Mutex
	tasks    map[string][]*models.Task
	nextID   int64
	clock    time.Time
	cleared  int
	register map[string]int

	registerErr error
	addErr      error
	fetchErr    error

	// hooks run before the action returns; they may block
	registerHook func(key string)
	addHook      func()
	fetchHook    func(key string, call int)
	fetchCalls   int
}

func newFakeActions() *fakeActions {
	return &fakeActions{
		tasks:    map[string][]*models.Task{},
		register: map[string]int{},
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (a *fakeActions) RegisterUser(_ context.Context, key string) (*models.User, error) {
	if a.registerHook != nil {
		a.registerHook(key)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.register[key]++
	if a.registerErr != nil {
		return nil, a.registerErr
	}
	return &models.User{ID: 1, IdentityKey: strings.ToLower(key)}, nil
}

func (a *fakeActions) FetchTasks(_ context.Context, key string) ([]*models.Task, error) {
	a.mu.Lock()
	a.fetchCalls++
	call := a.fetchCalls
	out := make([]*models.Task, 0, len(a.tasks[key]))
	for _, t := range a.tasks[key] {
		cp := *t
		out = append(out, &cp)
	}
	err := a.fetchErr
	hook := a.fetchHook
	a.mu.Unlock()

	if hook != nil {
		hook(key, call)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *fakeActions) AddTask(_ context.Context, key, text string) (*models.Task, error) {
	if a.addHook != nil {
		a.addHook()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.addErr != nil {
		return nil, a.addErr
	}
	a.nextID++
	a.clock = a.clock.Add(time.Second)
	t := &models.Task{ID: a.nextID, Text: text, CreatedAt: a.clock}
	a.tasks[key] = append(a.tasks[key], t)
	return t, nil
}

func (a *fakeActions) CompleteTask(_ context.Context, key string, id int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, t := range a.tasks[key] {
		if t.ID == id {
			a.clock = a.clock.Add(time.Second)
			at := a.clock
			t.Completed = true
			t.CompletedAt = &at
		}
	}
	return nil
}

func (a *fakeActions) ExportTasks(_ context.Context, key string) (*models.Export, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &models.Export{ObjectKey: "exports/" + key, Count: len(a.tasks[key])}, nil
}

func (a *fakeActions) ClearSession() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cleared++
}

func (a *fakeActions) registrations(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.register[key]
}
