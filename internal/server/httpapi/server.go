// Package httpapi serves the task actions as a JSON API for browser clients.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/dtodo/internal/identity"
	"github.com/dmitrijs2005/dtodo/internal/logging"
	"github.com/dmitrijs2005/dtodo/internal/server/models"
	"github.com/dmitrijs2005/dtodo/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type UserService interface {
	Scheme() identity.Scheme
	Challenge(ctx context.Context, identityKey string) (*services.Challenge, error)
	Register(ctx context.Context, identityKey string, proof *services.WalletProof) (*models.User, error)
	IssueTokens(ctx context.Context, user *models.User) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type TaskService interface {
	List(ctx context.Context, identityKey string) ([]*models.Task, error)
	Add(ctx context.Context, identityKey string, text string) (*models.Task, error)
	Complete(ctx context.Context, identityKey string, taskID int64) error
}

type ExportService interface {
	Export(ctx context.Context, identityKey string) (*services.Export, error)
}

type Server struct {
	address     string
	users       UserService
	tasks       TaskService
	exports     ExportService
	logger      logging.Logger
	jwtSecret   []byte
	corsOrigins []string
}

func NewServer(a string, l logging.Logger, us UserService, ts TaskService, es ExportService, secretKey string, corsOrigins []string) *Server {
	return &Server{
		address:     a,
		logger:      l.With("module", "http_server"),
		users:       us,
		tasks:       ts,
		exports:     es,
		jwtSecret:   []byte(secretKey),
		corsOrigins: corsOrigins,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/challenge", s.handleChallenge)
		r.Post("/users", s.handleRegister)
		r.Post("/tokens/refresh", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.requireBearer)
			r.Get("/tasks", s.handleListTasks)
			r.Post("/tasks", s.handleAddTask)
			r.Post("/tasks/{id}/complete", s.handleCompleteTask)
			r.Post("/tasks/export", s.handleExport)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down with a grace period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
