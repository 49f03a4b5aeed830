package quic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	q "github.com/quic-go/quic-go"

	"github.com/bigbrett/wolfHSM/whsm/comm"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

type Options struct {
	// Compress lz4 compresses request payloads that shrink.
	Compress bool

	// PinSHA256, when set, is the expected module certificate fingerprint.
	PinSHA256 []byte

	Logger *slog.Logger
}

type result struct {
	f   protocol.Frame
	err error
}

// Conn is a comm.Transport over one QUIC stream. A background reader
// decodes incoming frames so Recv never blocks.
type Conn struct {
	conn   q.Connection
	stream q.Stream
	opts   Options
	log    *slog.Logger

	frames chan result
	done   chan struct{}
	exited chan struct{}

	wmu       sync.Mutex
	closeOnce sync.Once
}

// DialConn connects to a module at addr and opens the request stream.
func DialConn(ctx context.Context, addr string, opts Options) (*Conn, error) {
	conn, err := Dial(ctx, addr, opts.PinSHA256)
	if err != nil {
		return nil, fmt.Errorf("quic: dial %s: %w", addr, err)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "open stream")
		return nil, fmt.Errorf("quic: open stream: %w", err)
	}
	return newConn(conn, stream, opts), nil
}

func newConn(conn q.Connection, stream q.Stream, opts Options) *Conn {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Conn{
		conn:   conn,
		stream: stream,
		opts:   opts,
		log:    logger,
		frames: make(chan result, 1),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	defer close(c.exited)
	defer close(c.frames)
	for {
		f, err := protocol.ReadFrame(c.stream)
		if err == nil {
			f.Payload, err = decodePayload(f)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.log.Debug("quic read", "err", err)
			}
			c.deliver(result{err: err})
			return
		}
		if !c.deliver(result{f: f}) {
			return
		}
	}
}

// deliver hands r to Recv unless the connection has been closed.
func (c *Conn) deliver(r result) bool {
	select {
	case c.frames <- r:
		return true
	case <-c.done:
		return false
	}
}

func (c *Conn) Send(h comm.Header, pkt []byte) error {
	payload, flags := encodePayload(pkt, c.opts.Compress)
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return protocol.WriteFrame(c.stream, protocol.Frame{Kind: h.Kind, Seq: h.Seq, Flags: flags, Payload: payload})
}

func (c *Conn) Recv(pkt []byte) (comm.Header, int, error) {
	select {
	case r, ok := <-c.frames:
		if !ok {
			return comm.Header{}, 0, comm.ErrClosed
		}
		if r.err != nil {
			return comm.Header{}, 0, fmt.Errorf("quic: %w", r.err)
		}
		if len(r.f.Payload) > len(pkt) {
			return comm.Header{}, 0, comm.ErrResponseTooLarge
		}
		n := copy(pkt, r.f.Payload)
		return comm.Header{Kind: r.f.Kind, Seq: r.f.Seq}, n, nil
	default:
		return comm.Header{}, 0, comm.ErrNotReady
	}
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.stream.Close()
		if cerr := c.conn.CloseWithError(0, ""); err == nil {
			err = cerr
		}
	})
	return err
}
