// Package grpccomm carries comm frames as unary gRPC calls. Each request
// frame is one Exchange call whose reply is the response frame.
package grpccomm

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/bigbrett/wolfHSM/whsm/comm"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

type reply struct {
	frame []byte
	err   error
}

// Client is a comm.Transport. Send starts the call in the background and
// Recv polls for its reply.
type Client struct {
	cc     *grpc.ClientConn
	client CommClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration

	mu      sync.Mutex
	pending chan reply
	closed  bool
}

type DialOptions struct {
	// Timeout, when non-zero, makes Dial wait for the connection to be
	// ready and fail once it elapses.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int

	// Dialer replaces the network dialer, mainly for in-memory listeners.
	Dialer func(context.Context, string) (net.Conn, error)
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	if opts.Dialer != nil {
		dialOpts = append(dialOpts, grpc.WithContextDialer(opts.Dialer))
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
		dialOpts = append(dialOpts, grpc.WithBlock())
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return NewClient(cc), nil
}

// NewClient wraps an existing connection.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewCommClient(cc)}
}

func (c *Client) Send(h comm.Header, pkt []byte) error {
	frame, err := protocol.AppendFrame(nil, protocol.Frame{Kind: h.Kind, Seq: h.Seq, Payload: pkt})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return comm.ErrClosed
	}
	if c.pending != nil {
		return comm.ErrNotReady
	}
	ch := make(chan reply, 1)
	c.pending = ch
	go func() {
		ctx, cancel := c.ctx()
		defer cancel()
		out, err := c.client.Exchange(ctx, wrapperspb.Bytes(frame))
		if err != nil {
			ch <- reply{err: mapRPC(err)}
			return
		}
		ch <- reply{frame: out.GetValue()}
	}()
	return nil
}

func (c *Client) Recv(pkt []byte) (comm.Header, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return comm.Header{}, 0, comm.ErrClosed
	}
	if c.pending == nil {
		return comm.Header{}, 0, comm.ErrNotReady
	}
	var r reply
	select {
	case r = <-c.pending:
		c.pending = nil
	default:
		return comm.Header{}, 0, comm.ErrNotReady
	}
	if r.err != nil {
		return comm.Header{}, 0, r.err
	}
	f, err := protocol.DecodeFrame(r.frame)
	if err != nil {
		return comm.Header{}, 0, fmt.Errorf("grpccomm: %w", err)
	}
	if len(f.Payload) > len(pkt) {
		return comm.Header{}, 0, comm.ErrResponseTooLarge
	}
	n := copy(pkt, f.Payload)
	return comm.Header{Kind: f.Kind, Seq: f.Seq}, n, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.cc == nil {
		return nil
	}
	c.closed = true
	return c.cc.Close()
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.Timeout)
}
