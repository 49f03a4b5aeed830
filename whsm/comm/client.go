package comm

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

// MinMTU leaves room for the stub and the largest fixed record.
const MinMTU = 64

type Options struct {
	// MTU is the largest packet either side may send. Zero means
	// protocol.DefaultDataLen. Both sides must be configured alike.
	MTU int

	// ClientID identifies this client to the module. Zero means 1.
	ClientID uint8

	Logger *slog.Logger
}

// Client owns one Transport. It is not safe for concurrent use; callers
// serialize access or use one Client per goroutine.
type Client struct {
	t        Transport
	mtu      int
	clientID uint8
	serverID uint32
	seq      uint16
	inFlight bool
	pool     sync.Pool
	logger   *slog.Logger
}

func NewClient(t Transport, opts Options) (*Client, error) {
	if t == nil {
		return nil, ErrNilTransport
	}
	mtu := opts.MTU
	if mtu == 0 {
		mtu = protocol.DefaultDataLen
	}
	if mtu < MinMTU || mtu > protocol.MaxFramePayload {
		return nil, fmt.Errorf("%w: %d", ErrMTU, mtu)
	}
	id := opts.ClientID
	if id == 0 {
		id = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Client{t: t, mtu: mtu, clientID: id, logger: logger}
	c.pool.New = func() any { return &Scratch{buf: make([]byte, mtu)} }
	return c, nil
}

func (c *Client) MTU() int { return c.mtu }

func (c *Client) ClientID() uint8 { return c.clientID }

// ServerID is known after Init.
func (c *Client) ServerID() uint32 { return c.serverID }

func (c *Client) Logger() *slog.Logger { return c.logger }

func (c *Client) Transport() Transport { return c.t }

func (c *Client) Close() error { return c.t.Close() }

// Scratch is a zeroed packet buffer of exactly MTU bytes. It belongs to the
// borrower until Release; nothing may keep a reference past that.
type Scratch struct {
	buf []byte
}

func (s *Scratch) Bytes() []byte { return s.buf }

// Borrow hands out a zeroed scratch buffer. Separate borrows never share
// memory, so a nested exchange cannot clobber the one in progress.
func (c *Client) Borrow() *Scratch {
	return c.pool.Get().(*Scratch)
}

// Release zeroes s and returns it to the client.
func (c *Client) Release(s *Scratch) {
	if s == nil {
		return
	}
	clear(s.buf)
	c.pool.Put(s)
}

// SendRequest transmits pkt tagged with group and action.
func (c *Client) SendRequest(group protocol.Group, action uint16, pkt []byte) error {
	if len(pkt) > c.mtu {
		return fmt.Errorf("%w: %d > %d", protocol.ErrTooLarge, len(pkt), c.mtu)
	}
	c.seq++
	if err := c.t.Send(Header{Kind: protocol.MakeKind(group, action), Seq: c.seq}, pkt); err != nil {
		return err
	}
	c.inFlight = true
	return nil
}

// RecvResponse polls once for the response to the last request. It returns
// ErrNotReady while the module is still working.
func (c *Client) RecvResponse(pkt []byte) (protocol.Kind, int, error) {
	h, n, err := c.t.Recv(pkt)
	if err != nil {
		return 0, 0, err
	}
	if !c.inFlight || h.Seq != c.seq {
		return 0, 0, fmt.Errorf("%w: seq %d, want %d", ErrUnexpectedResponse, h.Seq, c.seq)
	}
	c.inFlight = false
	return h.Kind, n, nil
}

// Exchange sends buf[:n] and spins until the response lands in buf. There
// is no timeout: a hung transport hangs the caller. The returned length is
// the response size.
func (c *Client) Exchange(group protocol.Group, action uint16, buf []byte, n int) (int, error) {
	if err := c.SendRequest(group, action, buf[:n]); err != nil {
		return 0, err
	}
	return c.Wait(group, action, buf)
}

// Wait polls for the outstanding response.
func (c *Client) Wait(group protocol.Group, action uint16, buf []byte) (int, error) {
	for {
		kind, m, err := c.RecvResponse(buf)
		if errors.Is(err, ErrNotReady) {
			runtime.Gosched()
			continue
		}
		if err != nil {
			return 0, err
		}
		if want := protocol.MakeKind(group, action); kind != want {
			return 0, fmt.Errorf("%w: kind %s, want %s", ErrUnexpectedResponse, kind, want)
		}
		if m < protocol.StubSize {
			return 0, fmt.Errorf("%w: %d byte response", protocol.ErrShortPacket, m)
		}
		return m, nil
	}
}
