package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/dtodo/internal/common"
	"github.com/dmitrijs2005/dtodo/internal/rpc"
	"github.com/dmitrijs2005/dtodo/internal/server/auth"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const identityKeyCtx ctxKey = "identityKey"

// methods that act on behalf of the token holder
var protectedMethods = map[string]bool{
	rpc.FetchTasksMethod:   true,
	rpc.AddTaskMethod:      true,
	rpc.CompleteTaskMethod: true,
	rpc.ExportTasksMethod:  true,
}

func identityFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(identityKeyCtx).(string)
	return key, ok && key != ""
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	started := time.Now()
	log := s.logger.With("request_id", uuid.NewString(), "method", info.FullMethod)

	resp, err := handler(ctx, req)

	code := status.Code(err)
	args := []any{"code", code.String(), "duration", time.Since(started)}
	switch code {
	case codes.OK:
		log.Debug(ctx, "request served", args...)
	case codes.Internal, codes.Unavailable, codes.Unknown:
		log.Error(ctx, "request failed", append(args, "error", err)...)
	default:
		log.Info(ctx, "request rejected", append(args, "error", err)...)
	}

	return resp, err
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if !protectedMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	tokenKey, err := auth.GetIdentityFromToken(accessToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	scoped, ok := req.(rpc.IdentityScoped)
	if !ok {
		return nil, status.Error(codes.Internal, "request carries no identity")
	}

	requested, err := s.users.Scheme().Normalize(scoped.GetIdentityKey())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if requested != tokenKey {
		return nil, status.Error(codes.PermissionDenied, "identity does not match access token")
	}

	ctx = context.WithValue(ctx, identityKeyCtx, tokenKey)

	return handler(ctx, req)
}
