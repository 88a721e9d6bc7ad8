package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name of the query API.
const ServiceName = "usersupplement.v1.QueryService"

// Method names of the query API. Requests and responses are google.protobuf.Struct.
const (
	MethodGetStats            = "GetStats"
	MethodGetUserStats        = "GetUserStats"
	MethodGetUserByExternalID = "GetUserByExternalID"
	MethodGetUser             = "GetUser"
	MethodListUsers           = "ListUsers"
	MethodListAddresses       = "ListAddresses"
	MethodListCreditCards     = "ListCreditCards"
	MethodRunJob              = "RunJob"
)

// QueryServiceServer is implemented by Server.
type QueryServiceServer interface {
	GetStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetUserStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetUserByExternalID(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListUsers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAddresses(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListCreditCards(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RunJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(QueryServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(QueryServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(QueryServiceServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// FullMethod returns "/usersupplement.v1.QueryService/<name>".
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// QueryServiceDesc describes the query API without generated code.
var QueryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*QueryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method(MethodGetStats, QueryServiceServer.GetStats),
		method(MethodGetUserStats, QueryServiceServer.GetUserStats),
		method(MethodGetUserByExternalID, QueryServiceServer.GetUserByExternalID),
		method(MethodGetUser, QueryServiceServer.GetUser),
		method(MethodListUsers, QueryServiceServer.ListUsers),
		method(MethodListAddresses, QueryServiceServer.ListAddresses),
		method(MethodListCreditCards, QueryServiceServer.ListCreditCards),
		method(MethodRunJob, QueryServiceServer.RunJob),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "usersupplement/v1/query.proto",
}

func RegisterQueryServiceServer(s grpc.ServiceRegistrar, srv QueryServiceServer) {
	s.RegisterService(&QueryServiceDesc, srv)
}

// QueryServiceClient calls the query API over a client connection.
type QueryServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewQueryServiceClient(cc grpc.ClientConnInterface) *QueryServiceClient {
	return &QueryServiceClient{cc: cc}
}

// Call invokes method with the given arguments.
func (c *QueryServiceClient) Call(ctx context.Context, method string, args map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(args)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
