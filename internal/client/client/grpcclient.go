package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/dtodo/internal/client/models"
	"github.com/dmitrijs2005/dtodo/internal/common"
	"github.com/dmitrijs2005/dtodo/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      rpc.TodoServiceClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokens() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	s.refreshToken = refresh
}

// ClearSession forgets the current token pair.
func (s *GRPCClient) ClearSession() {
	s.setTokens("", "")
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	accessToken, refreshToken := s.tokens()

	err := invoker(withAccessToken(ctx, accessToken), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if refreshToken == "" {
		return err
	}

	resp, rerr := s.client.RefreshToken(ctx, &rpc.RefreshTokenRequest{RefreshToken: refreshToken})
	if rerr != nil {
		return rerr
	}
	s.setTokens(resp.AccessToken, resp.RefreshToken)

	// retry once with the rotated access token
	return invoker(withAccessToken(ctx, resp.AccessToken), method, req, reply, cc, opts...)
}

func NewTodoClientService(endpointURL string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(extra ...grpc.DialOption) error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, extra...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = rpc.NewTodoServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &rpc.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}

	if resp.Status != "OK" {
		return ErrUnavailable
	}

	return nil
}

func (s *GRPCClient) Challenge(ctx context.Context, identityKey string) (string, string, error) {
	resp, err := s.client.Challenge(ctx, &rpc.ChallengeRequest{IdentityKey: identityKey})
	if err != nil {
		return "", "", s.mapError(err)
	}
	return resp.Token, resp.Message, nil
}

// RegisterUser resolves identityKey on the server and keeps the issued
// token pair for subsequent task calls.
func (s *GRPCClient) RegisterUser(ctx context.Context, identityKey string, proof *models.WalletProof) (*models.User, error) {
	req := &rpc.RegisterUserRequest{IdentityKey: identityKey}
	if proof != nil {
		req.ChallengeToken = proof.ChallengeToken
		req.Signature = proof.Signature
	}

	resp, err := s.client.RegisterUser(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}

	s.setTokens(resp.AccessToken, resp.RefreshToken)

	return &models.User{ID: resp.UserID, IdentityKey: resp.IdentityKey, CreatedAt: resp.CreatedAt}, nil
}

func (s *GRPCClient) FetchTasks(ctx context.Context, identityKey string) ([]*models.Task, error) {
	resp, err := s.client.FetchTasks(ctx, &rpc.FetchTasksRequest{IdentityKey: identityKey})
	if err != nil {
		return nil, s.mapError(err)
	}

	tasks := make([]*models.Task, 0, len(resp.Tasks))
	for _, t := range resp.Tasks {
		tasks = append(tasks, fromRPCTask(t))
	}
	return tasks, nil
}

func (s *GRPCClient) AddTask(ctx context.Context, identityKey, text string) (*models.Task, error) {
	resp, err := s.client.AddTask(ctx, &rpc.AddTaskRequest{IdentityKey: identityKey, Text: text})
	if err != nil {
		return nil, s.mapError(err)
	}
	if resp.Task == nil {
		return nil, fmt.Errorf("rpc error: empty task in response")
	}
	return fromRPCTask(resp.Task), nil
}

func (s *GRPCClient) CompleteTask(ctx context.Context, identityKey string, taskID int64) error {
	_, err := s.client.CompleteTask(ctx, &rpc.CompleteTaskRequest{IdentityKey: identityKey, TaskID: taskID})
	if err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) ExportTasks(ctx context.Context, identityKey string) (*models.Export, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := s.client.ExportTasks(ctx, &rpc.ExportTasksRequest{IdentityKey: identityKey})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &models.Export{URL: resp.URL, ObjectKey: resp.ObjectKey, Count: resp.Count, ExpiresAt: resp.ExpiresAt}, nil
}

func fromRPCTask(t *rpc.Task) *models.Task {
	return &models.Task{
		ID:          t.ID,
		Text:        t.Text,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
	}
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.InvalidArgument:
		return ErrInvalidIdentity
	case codes.FailedPrecondition:
		return ErrExportDisabled
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
