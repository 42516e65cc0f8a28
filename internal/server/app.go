// Package server wires configuration, storage, services and transports into
// the dtodo server application and runs it until a termination signal.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/dtodo/internal/identity"
	"github.com/dmitrijs2005/dtodo/internal/logging"
	"github.com/dmitrijs2005/dtodo/internal/server/config"
	"github.com/dmitrijs2005/dtodo/internal/server/httpapi"
	"github.com/dmitrijs2005/dtodo/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/dtodo/internal/server/services"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/dtodo/internal/server/grpc"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// seams for tests
var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}
	newRepositoryManager = func() repomanager.RepositoryManager {
		return repomanager.NewPostgresRepositoryManager()
	}
)

type App struct {
	config        *config.Config
	logger        logging.Logger
	db            *sql.DB
	userService   *services.UserService
	taskService   *services.TaskService
	exportService *services.ExportService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	scheme, err := identity.ParseScheme(c.IdentityScheme)
	if err != nil {
		return nil, err
	}

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := newRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	ts := services.NewTaskService(db, rm, scheme)

	app := &App{
		config:        c,
		logger:        logger,
		db:            db,
		userService:   services.NewUserService(db, rm, scheme, c),
		taskService:   ts,
		exportService: services.NewExportService(ts, c),
	}

	logger.Info(ctx, "App initialized",
		"identity_scheme", scheme.Name(),
		"wallet_proof", app.userService.ProofRequired(),
		"export_enabled", c.ExportEnabled(),
	)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts the gRPC server and, unless disabled, the HTTP API. It returns
// once both have stopped; the first failure stops the other.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.db.Close()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.taskService, app.exportService, app.config.SecretKey)
		if err := s.Run(ctx); err != nil {
			app.logger.Error(ctx, "gRPC server failed", "error", err)
			return err
		}
		return nil
	})

	if app.config.EndpointAddrHTTP != "" {
		g.Go(func() error {
			s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger, app.userService, app.taskService, app.exportService, app.config.SecretKey, app.config.CORSOrigins)
			if err := s.Run(ctx); err != nil {
				app.logger.Error(ctx, "HTTP server failed", "error", err)
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return err
}
