package grpccomm

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// CommServer is the server API for the Comm gRPC service. Each message is
// one encoded protocol.Frame carried in a well-known wrapper type, so no
// generated code is needed.
type CommServer interface {
	Exchange(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// UnimplementedCommServer can be embedded to have forward compatible implementations.
type UnimplementedCommServer struct{}

func (UnimplementedCommServer) Exchange(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Exchange not implemented")
}

// RegisterCommServer registers the Comm service on a gRPC server.
func RegisterCommServer(s grpc.ServiceRegistrar, srv CommServer) {
	s.RegisterService(&Comm_ServiceDesc, srv)
}

// CommClient is the client API for the Comm gRPC service.
type CommClient interface {
	Exchange(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type commClient struct{ cc grpc.ClientConnInterface }

func NewCommClient(cc grpc.ClientConnInterface) CommClient { return &commClient{cc: cc} }

func (c *commClient) Exchange(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, "/whsm.transport.v1.Comm/Exchange", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func _Comm_Exchange_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CommServer).Exchange(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/whsm.transport.v1.Comm/Exchange"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CommServer).Exchange(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Comm_ServiceDesc is the grpc.ServiceDesc for Comm service.
var Comm_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "whsm.transport.v1.Comm",
	HandlerType: (*CommServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Exchange", Handler: _Comm_Exchange_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "comm.proto",
}
