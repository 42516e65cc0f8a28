package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/dtodo/internal/common"
	"github.com/dmitrijs2005/dtodo/internal/rpc"
	"github.com/dmitrijs2005/dtodo/internal/server/models"
	"github.com/dmitrijs2005/dtodo/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidIdentity):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return status.Error(codes.Unauthenticated, "refresh token expired")
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrPersistenceUnavailable):
		return status.Error(codes.Unavailable, "storage unavailable")
	case errors.Is(err, common.ErrExportDisabled):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func toRPCTask(t *models.Task) *rpc.Task {
	return &rpc.Task{
		ID:          t.ID,
		Text:        t.Text,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
	}
}

func (s *GRPCServer) Ping(ctx context.Context, req *rpc.PingRequest) (*rpc.PingResponse, error) {
	return &rpc.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) Challenge(ctx context.Context, req *rpc.ChallengeRequest) (*rpc.ChallengeResponse, error) {
	ch, err := s.users.Challenge(ctx, req.IdentityKey)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.ChallengeResponse{Token: ch.Token, Message: ch.Message}, nil
}

func (s *GRPCServer) RegisterUser(ctx context.Context, req *rpc.RegisterUserRequest) (*rpc.RegisterUserResponse, error) {

	var proof *services.WalletProof
	if req.ChallengeToken != "" || req.Signature != "" {
		proof = &services.WalletProof{ChallengeToken: req.ChallengeToken, Signature: req.Signature}
	}

	user, err := s.users.Register(ctx, req.IdentityKey, proof)
	if err != nil {
		if errors.Is(err, common.ErrPersistenceUnavailable) {
			s.logger.Error(ctx, "registration failed", "error", err)
		}
		return nil, toStatus(err)
	}

	tokens, err := s.users.IssueTokens(ctx, user)
	if err != nil {
		s.logger.Error(ctx, "token issue failed", "error", err)
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "Registered", "identity", user.IdentityKey, "user_id", user.ID)

	return &rpc.RegisterUserResponse{
		UserID:       user.ID,
		IdentityKey:  user.IdentityKey,
		CreatedAt:    user.CreatedAt,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *rpc.RefreshTokenRequest) (*rpc.RefreshTokenResponse, error) {
	tokens, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.RefreshTokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) FetchTasks(ctx context.Context, req *rpc.FetchTasksRequest) (*rpc.FetchTasksResponse, error) {
	key, ok := identityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	tasks, err := s.tasks.List(ctx, key)
	if err != nil {
		return nil, toStatus(err)
	}

	out := make([]*rpc.Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toRPCTask(t))
	}
	return &rpc.FetchTasksResponse{Tasks: out}, nil
}

func (s *GRPCServer) AddTask(ctx context.Context, req *rpc.AddTaskRequest) (*rpc.AddTaskResponse, error) {
	key, ok := identityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	task, err := s.tasks.Add(ctx, key, req.Text)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.AddTaskResponse{Task: toRPCTask(task)}, nil
}

func (s *GRPCServer) CompleteTask(ctx context.Context, req *rpc.CompleteTaskRequest) (*rpc.CompleteTaskResponse, error) {
	key, ok := identityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	if err := s.tasks.Complete(ctx, key, req.TaskID); err != nil {
		return nil, toStatus(err)
	}
	return &rpc.CompleteTaskResponse{}, nil
}

func (s *GRPCServer) ExportTasks(ctx context.Context, req *rpc.ExportTasksRequest) (*rpc.ExportTasksResponse, error) {
	key, ok := identityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	exp, err := s.exports.Export(ctx, key)
	if err != nil {
		if !errors.Is(err, common.ErrExportDisabled) {
			s.logger.Error(ctx, "export failed", "error", err)
		}
		return nil, toStatus(err)
	}
	return &rpc.ExportTasksResponse{
		URL:       exp.URL,
		ObjectKey: exp.ObjectKey,
		Count:     exp.Count,
		ExpiresAt: exp.ExpiresAt,
	}, nil
}
