package grpccomm

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bigbrett/wolfHSM/whsm/comm"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.Unavailable, codes.Canceled:
		return comm.ErrClosed
	case codes.ResourceExhausted:
		return comm.ErrResponseTooLarge
	case codes.InvalidArgument:
		switch st.Message() {
		case protocol.ErrBadMagic.Error():
			return protocol.ErrBadMagic
		case protocol.ErrShortFrame.Error():
			return protocol.ErrShortFrame
		}
		return err
	default:
		return err
	}
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, comm.ErrResponseTooLarge), errors.Is(err, protocol.ErrFrameTooLarge):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
