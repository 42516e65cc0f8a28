// Package grpc exposes the task services as dtodo.TodoService over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/dtodo/internal/identity"
	"github.com/dmitrijs2005/dtodo/internal/logging"
	"github.com/dmitrijs2005/dtodo/internal/rpc"
	"github.com/dmitrijs2005/dtodo/internal/server/models"
	"github.com/dmitrijs2005/dtodo/internal/server/services"
	"google.golang.org/grpc"
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

type GRPCServer struct {
	rpc.UnimplementedTodoServiceServer
	address   string
	users     UserService
	tasks     TaskService
	exports   ExportService
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, us UserService, ts TaskService, es ExportService, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		users:     us,
		tasks:     ts,
		exports:   es,
		jwtSecret: []byte(secretKey),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	rpc.RegisterTodoServiceServer(srv, s)
	return srv
}

// Run listens on the configured address until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis and stops gracefully once ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	<-stopped
	return nil
}
