// Package controller holds the client's account and task state: which
// identity is signed in, the cached task list and the busy flag that
// debounces submissions. Views read from it and call its commands.
package controller

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/dtodo/internal/client/models"
	"github.com/dmitrijs2005/dtodo/internal/logging"
)

type State string

const (
	StateSignedOut  State = "signed_out"
	StateConnecting State = "connecting"
	StateSignedIn   State = "signed_in"
)

var (
	ErrBusy        = errors.New("another operation is in progress")
	ErrEmptyTask   = errors.New("task text is empty")
	ErrNotSignedIn = errors.New("not signed in")
)

// IdentityProvider is the source of the external identity.
type IdentityProvider interface {
	CurrentIdentity() (string, bool)
	Subscribe(fn func(accounts []string)) (unsubscribe func())
	RequestAccounts(ctx context.Context) ([]string, error)
}

// Actions are the backend operations the controller drives.
type Actions interface {
	RegisterUser(ctx context.Context, identityKey string) (*models.User, error)
	FetchTasks(ctx context.Context, identityKey string) ([]*models.Task, error)
	AddTask(ctx context.Context, identityKey, text string) (*models.Task, error)
	CompleteTask(ctx context.Context, identityKey string, taskID int64) error
	ExportTasks(ctx context.Context, identityKey string) (*models.Export, error)
}

// sessionClearer is implemented by actions that hold per-identity tokens.
type sessionClearer interface {
	ClearSession()
}

// Controller is safe for concurrent use.
type Controller struct {
	provider IdentityProvider
	actions  Actions
	logger   logging.Logger

	mu       sync.Mutex
	state    State
	pending  string // key being connected
	identity string // resolved key while signed in
	tasks    []*models.Task
	lastErr  error
	// signIn increments on every sign-in or sign-out so a slow Register for
	// an abandoned identity cannot win.
	signIn uint64
	// issued and applied order task refreshes; older results are dropped.
	issued  uint64
	applied uint64

	busy        atomic.Bool
	unsubscribe func()
}

func New(provider IdentityProvider, actions Actions, logger logging.Logger) *Controller {
	return &Controller{
		provider: provider,
		actions:  actions,
		logger:   logger,
		state:    StateSignedOut,
	}
}

// Mount subscribes to account changes and reconnects silently when the
// provider already has an identity. ctx must outlive the subscription.
func (c *Controller) Mount(ctx context.Context) {
	unsub := c.provider.Subscribe(func(accounts []string) {
		c.onAccountsChanged(ctx, accounts)
	})

	c.mu.Lock()
	c.unsubscribe = unsub
	c.mu.Unlock()

	if key, ok := c.provider.CurrentIdentity(); ok {
		if err := c.signInAs(ctx, key); err != nil {
			c.logger.Warn(ctx, "silent reconnect failed", "identity", key, "error", err)
		}
	}
}

// Unmount stops listening for account changes.
func (c *Controller) Unmount() {
	c.mu.Lock()
	unsub := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Connect asks the provider for accounts and signs in as the first one.
// When the request fails an existing session is kept as it was.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	prev, seq := c.state, c.signIn
	c.state = StateConnecting
	c.mu.Unlock()

	accounts, err := c.provider.RequestAccounts(ctx)
	if err == nil && len(accounts) == 0 {
		err = errors.New("provider returned no accounts")
	}
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		switch {
		case c.pending != "":
			// a sign-in started meanwhile owns the state
		case prev == StateSignedIn && seq == c.signIn:
			c.state = StateSignedIn
		default:
			c.resetLocked()
		}
		c.mu.Unlock()
		c.logger.Error(ctx, "connect failed", "error", err)
		return err
	}

	return c.signInAs(ctx, accounts[0])
}

func (c *Controller) signInAs(ctx context.Context, key string) error {
	c.mu.Lock()
	c.signIn++
	seq := c.signIn
	c.state = StateConnecting
	c.pending = key
	c.mu.Unlock()

	user, err := c.actions.RegisterUser(ctx, key)

	c.mu.Lock()
	if seq != c.signIn {
		c.mu.Unlock()
		return nil
	}
	c.pending = ""
	c.lastErr = err
	if err != nil {
		c.resetLocked()
		c.mu.Unlock()
		c.logger.Error(ctx, "sign in failed", "identity", key, "error", err)
		return err
	}
	c.state = StateSignedIn
	c.identity = user.IdentityKey
	c.tasks = nil
	c.mu.Unlock()

	c.logger.Info(ctx, "signed in", "identity", user.IdentityKey, "user_id", user.ID)
	return c.Refresh(ctx)
}

func (c *Controller) onAccountsChanged(ctx context.Context, accounts []string) {
	if len(accounts) == 0 {
		c.signOut(ctx)
		return
	}

	next := accounts[0]
	c.mu.Lock()
	same := strings.EqualFold(next, c.pending) ||
		(c.pending == "" && c.state == StateSignedIn && strings.EqualFold(next, c.identity))
	c.mu.Unlock()
	if same {
		return
	}

	if err := c.signInAs(ctx, next); err != nil {
		c.logger.Warn(ctx, "account switch failed", "identity", next, "error", err)
	}
}

func (c *Controller) signOut(ctx context.Context) {
	c.mu.Lock()
	c.signIn++
	c.pending = ""
	c.resetLocked()
	c.mu.Unlock()

	if sc, ok := c.actions.(sessionClearer); ok {
		sc.ClearSession()
	}
	c.logger.Info(ctx, "signed out")
}

func (c *Controller) resetLocked() {
	c.state = StateSignedOut
	c.identity = ""
	c.tasks = nil
}

// Refresh re-fetches the task list of the signed-in identity. A result is
// applied only if no newer refresh has been applied and the identity has
// not changed meanwhile.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateSignedIn {
		c.mu.Unlock()
		return ErrNotSignedIn
	}
	key := c.identity
	c.issued++
	gen := c.issued
	c.mu.Unlock()

	tasks, err := c.actions.FetchTasks(ctx, key)
	if err != nil {
		c.logger.Error(ctx, "fetch tasks failed", "identity", key, "error", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen <= c.applied || c.state != StateSignedIn || c.identity != key {
		c.logger.Debug(ctx, "stale task list dropped", "generation", gen)
		return nil
	}
	c.applied = gen
	c.tasks = tasks
	return nil
}

// Add creates a task and refreshes the list whatever the outcome.
func (c *Controller) Add(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyTask
	}
	return c.mutate(ctx, func(key string) error {
		_, err := c.actions.AddTask(ctx, key, text)
		return err
	})
}

// Complete marks a task done. Completing a task the identity does not own
// is a silent no-op on the server.
func (c *Controller) Complete(ctx context.Context, taskID int64) error {
	return c.mutate(ctx, func(key string) error {
		return c.actions.CompleteTask(ctx, key, taskID)
	})
}

func (c *Controller) mutate(ctx context.Context, action func(key string) error) error {
	key, err := c.signedInKey()
	if err != nil {
		return err
	}
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.busy.Store(false)

	actionErr := action(key)
	if actionErr != nil {
		c.logger.Error(ctx, "task action failed", "identity", key, "error", actionErr)
	}
	refreshErr := c.Refresh(ctx)
	if actionErr != nil {
		return actionErr
	}
	return refreshErr
}

// Export uploads a snapshot of the identity's tasks.
func (c *Controller) Export(ctx context.Context) (*models.Export, error) {
	key, err := c.signedInKey()
	if err != nil {
		return nil, err
	}
	return c.actions.ExportTasks(ctx, key)
}

func (c *Controller) signedInKey() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateSignedIn {
		return "", ErrNotSignedIn
	}
	return c.identity, nil
}

// State returns the account state and the signed-in identity, if any.
func (c *Controller) State() (State, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.identity
}

// LastError returns the error of the most recent failed sign-in, or nil
// once a sign-in succeeds.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) Busy() bool {
	return c.busy.Load()
}

// Tasks returns every cached task, completed ones included.
func (c *Controller) Tasks() []*models.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.tasks)
}

// VisibleTasks returns the cached tasks that are still pending.
func (c *Controller) VisibleTasks() []*models.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.Pending(c.tasks)
}
