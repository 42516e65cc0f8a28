package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/dtodo/internal/client/client"
	"github.com/dmitrijs2005/dtodo/internal/client/config"
	"github.com/dmitrijs2005/dtodo/internal/client/controller"
	"github.com/dmitrijs2005/dtodo/internal/client/models"
	"github.com/dmitrijs2005/dtodo/internal/client/providers"
	"github.com/dmitrijs2005/dtodo/internal/client/providers/session"
	"github.com/dmitrijs2005/dtodo/internal/client/providers/wallet"
	"github.com/dmitrijs2005/dtodo/internal/client/services"
	"github.com/dmitrijs2005/dtodo/internal/common"
	"github.com/dmitrijs2005/dtodo/internal/identity"
	"github.com/dmitrijs2005/dtodo/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Test seams.
var (
	initDatabase = client.InitDatabase
	newAPIClient = func(addr string) (client.Client, error) {
		return client.NewTodoClientService(addr)
	}
)

// walletAccounts is the part of wallet.Provider the commands use.
type walletAccounts interface {
	Switch(ctx context.Context, address string) error
	NewAccount(ctx context.Context) (string, error)
	Import(ctx context.Context, hexKey string) (string, error)
	Addresses(ctx context.Context) ([]string, error)
	Disconnect(ctx context.Context) error
}

// emailSession is the part of session.Provider the commands use.
type emailSession interface {
	SignIn(ctx context.Context, email string) error
	SignOut(ctx context.Context) error
}

// viewController is what the views need from the state controller.
type viewController interface {
	Mount(ctx context.Context)
	Unmount()
	Connect(ctx context.Context) error
	Refresh(ctx context.Context) error
	Add(ctx context.Context, text string) error
	Complete(ctx context.Context, taskID int64) error
	Export(ctx context.Context) (*models.Export, error)
	State() (controller.State, string)
	LastError() error
	Tasks() []*models.Task
	VisibleTasks() []*models.Task
}

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	api        client.Client
	controller viewController
	wallet     walletAccounts
	session    emailSession
	reader     *bufio.Reader
	out        io.Writer

	mu   sync.RWMutex
	mode Mode
}

// NewApp opens the local store, connects the API client and builds the
// identity provider for the configured scheme.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewText(os.Stderr, c.LogLevel)

	scheme, err := identity.ParseScheme(c.IdentityScheme)
	if err != nil {
		return nil, err
	}

	db, err := initDatabase(ctx, c.LocalDBPath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "path", c.LocalDBPath, "error", err)
		return nil, err
	}
	repos := client.NewRepositories(db)

	api, err := newAPIClient(c.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &App{
		config: c,
		logger: logger,
		db:     db,
		api:    api,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		mode:   ModeOffline,
	}

	var (
		provider controller.IdentityProvider
		signer   providers.Signer
		restore  func(context.Context) (string, bool, error)
	)
	switch scheme.Name() {
	case common.SchemeWallet:
		wp := wallet.NewProvider(wallet.NewKeystore(repos.WalletKeys), repos.Metadata, a.promptPassphrase)
		provider, signer, restore = wp, wp, wp.Restore
		a.wallet = wp
	default:
		sp := session.NewProvider(repos.Metadata)
		provider, restore = sp, sp.Restore
		a.session = sp
	}

	if account, ok, err := restore(ctx); err != nil {
		logger.Warn(ctx, "could not restore the last identity", "error", err)
	} else if ok {
		logger.Debug(ctx, "restored identity", "identity", account)
	}

	a.controller = controller.New(provider, services.NewTaskActions(api, signer), logger)
	return a, nil
}

func (a *App) promptPassphrase(prompt string) ([]byte, error) {
	return GetPassword(a.out, prompt)
}

// Close releases the API connection and the local database.
func (a *App) Close() {
	if a.api != nil {
		_ = a.api.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) Mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		printlnFn(fmt.Sprintf("Switched to %s mode", mode))
	}
}

// Run mounts the controller and serves the REPL until exit or EOF.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	printlnFn("Welcome to dtodo (type 'help' for commands)")

	a.controller.Mount(ctx)
	defer a.controller.Unmount()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(watchCtx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

// StartOnlineStatusWatcher pings the server every interval and flips the
// mode shown in the prompt.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.api.Ping(pingCtx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) isSignedIn() bool {
	state, _ := a.controller.State()
	return state == controller.StateSignedIn
}

func (a *App) getStatus() string {
	state, id := a.controller.State()
	s := ""
	switch state {
	case controller.StateSignedIn:
		s = shortIdentity(id) + " "
	case controller.StateConnecting:
		s = "connecting "
	}
	return fmt.Sprintf("(%s%s)", s, a.Mode())
}

// shortIdentity abbreviates wallet addresses as 0x1234…abcd.
func shortIdentity(id string) string {
	if len(id) == 42 && id[:2] == "0x" {
		return id[:6] + "…" + id[38:]
	}
	return id
}
