package grpccomm

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/bigbrett/wolfHSM/whsm/comm"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

// Server exposes a comm.Handler over the Comm gRPC service.
type Server struct {
	UnimplementedCommServer
	Handler comm.Handler

	// MTU sizes each response. Zero means protocol.DefaultDataLen.
	MTU int
}

func (s *Server) Exchange(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if s == nil || s.Handler == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing handler")
	}
	f, err := protocol.DecodeFrame(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	mtu := s.MTU
	if mtu == 0 {
		mtu = protocol.DefaultDataLen
	}
	resp := make([]byte, mtu)
	n, err := s.Handler.Handle(f.Kind, f.Payload, resp)
	if err != nil {
		return nil, mapErr(err)
	}
	out, err := protocol.AppendFrame(nil, protocol.Frame{Kind: f.Kind, Seq: f.Seq, Payload: resp[:n]})
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(out), nil
}
