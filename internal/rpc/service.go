package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "dtodo.TodoService"

const (
	PingMethod         = "/" + ServiceName + "/Ping"
	ChallengeMethod    = "/" + ServiceName + "/Challenge"
	RegisterUserMethod = "/" + ServiceName + "/RegisterUser"
	RefreshTokenMethod = "/" + ServiceName + "/RefreshToken"
	FetchTasksMethod   = "/" + ServiceName + "/FetchTasks"
	AddTaskMethod      = "/" + ServiceName + "/AddTask"
	CompleteTaskMethod = "/" + ServiceName + "/CompleteTask"
	ExportTasksMethod  = "/" + ServiceName + "/ExportTasks"
)

// TodoServiceServer is the server API for dtodo.TodoService.
type TodoServiceServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	Challenge(context.Context, *ChallengeRequest) (*ChallengeResponse, error)
	RegisterUser(context.Context, *RegisterUserRequest) (*RegisterUserResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error)
	FetchTasks(context.Context, *FetchTasksRequest) (*FetchTasksResponse, error)
	AddTask(context.Context, *AddTaskRequest) (*AddTaskResponse, error)
	CompleteTask(context.Context, *CompleteTaskRequest) (*CompleteTaskResponse, error)
	ExportTasks(context.Context, *ExportTasksRequest) (*ExportTasksResponse, error)
}

// UnimplementedTodoServiceServer can be embedded for forward compatibility.
type UnimplementedTodoServiceServer struct{}

func (UnimplementedTodoServiceServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}
func (UnimplementedTodoServiceServer) Challenge(context.Context, *ChallengeRequest) (*ChallengeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Challenge not implemented")
}
func (UnimplementedTodoServiceServer) RegisterUser(context.Context, *RegisterUserRequest) (*RegisterUserResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RegisterUser not implemented")
}
func (UnimplementedTodoServiceServer) RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RefreshToken not implemented")
}
func (UnimplementedTodoServiceServer) FetchTasks(context.Context, *FetchTasksRequest) (*FetchTasksResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method FetchTasks not implemented")
}
func (UnimplementedTodoServiceServer) AddTask(context.Context, *AddTaskRequest) (*AddTaskResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AddTask not implemented")
}
func (UnimplementedTodoServiceServer) CompleteTask(context.Context, *CompleteTaskRequest) (*CompleteTaskResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CompleteTask not implemented")
}
func (UnimplementedTodoServiceServer) ExportTasks(context.Context, *ExportTasksRequest) (*ExportTasksResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ExportTasks not implemented")
}

// unary adapts a typed server method to grpc.MethodHandler, running it
// through the interceptor chain when one is installed.
func unary[Req any, Resp any](fullMethod string, call func(TodoServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TodoServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(TodoServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// TodoServiceDesc is the grpc.ServiceDesc for dtodo.TodoService.
var TodoServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TodoServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unary(PingMethod, TodoServiceServer.Ping)},
		{MethodName: "Challenge", Handler: unary(ChallengeMethod, TodoServiceServer.Challenge)},
		{MethodName: "RegisterUser", Handler: unary(RegisterUserMethod, TodoServiceServer.RegisterUser)},
		{MethodName: "RefreshToken", Handler: unary(RefreshTokenMethod, TodoServiceServer.RefreshToken)},
		{MethodName: "FetchTasks", Handler: unary(FetchTasksMethod, TodoServiceServer.FetchTasks)},
		{MethodName: "AddTask", Handler: unary(AddTaskMethod, TodoServiceServer.AddTask)},
		{MethodName: "CompleteTask", Handler: unary(CompleteTaskMethod, TodoServiceServer.CompleteTask)},
		{MethodName: "ExportTasks", Handler: unary(ExportTasksMethod, TodoServiceServer.ExportTasks)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dtodo/todo.json",
}

func RegisterTodoServiceServer(s grpc.ServiceRegistrar, srv TodoServiceServer) {
	s.RegisterService(&TodoServiceDesc, srv)
}
