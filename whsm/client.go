package whsm

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bigbrett/wolfHSM/whsm/comm"
	"github.com/bigbrett/wolfHSM/whsm/comm/mem"
	"github.com/bigbrett/wolfHSM/whsm/config"
	"github.com/bigbrett/wolfHSM/whsm/cryptocb"
	"github.com/bigbrett/wolfHSM/whsm/keystore"
	"github.com/bigbrett/wolfHSM/whsm/module"
	"github.com/bigbrett/wolfHSM/whsm/transport/grpccomm"
	"github.com/bigbrett/wolfHSM/whsm/transport/quic"
)

// DevID is the device id a Client's callback is usually registered under.
const DevID = 0x5748534D

var ErrUnknownTransport = errors.New("whsm: unknown transport")

// Client combines transport, key store and crypto callback for one module.
// Like comm.Client it is not safe for concurrent use.
type Client struct {
	comm *comm.Client
	cb   *cryptocb.Context
}

func NewClient(t comm.Transport, opts comm.Options) (*Client, error) {
	c, err := comm.NewClient(t, opts)
	if err != nil {
		return nil, err
	}
	return &Client{comm: c, cb: cryptocb.NewContext(c)}, nil
}

// Open builds the transport s names, connects and runs comm init. The mem
// transport starts a module in process.
func Open(ctx context.Context, s config.Settings, logger *slog.Logger) (*Client, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	var t comm.Transport
	switch s.Transport {
	case config.TransportMem:
		srv := module.New(module.Options{MTU: s.MTU, ServerID: s.ServerID, Logger: logger.With("side", "module")})
		t = mem.New(srv, mem.Options{MTU: s.MTU})
	case config.TransportQUIC:
		dctx := ctx
		if s.DialTimeout > 0 {
			var cancel context.CancelFunc
			dctx, cancel = context.WithTimeout(ctx, s.DialTimeout)
			defer cancel()
		}
		pin, err := hex.DecodeString(s.PinSHA256)
		if err != nil {
			return nil, err
		}
		conn, err := quic.DialConn(dctx, s.Address, quic.Options{Compress: s.Compress, PinSHA256: pin, Logger: logger})
		if err != nil {
			return nil, err
		}
		t = conn
	case config.TransportGRPC:
		gc, err := grpccomm.Dial(s.Address, grpccomm.DialOptions{Timeout: s.DialTimeout, MaxMsgBytes: 2 * s.MTU})
		if err != nil {
			return nil, fmt.Errorf("whsm: dial %s: %w", s.Address, err)
		}
		t = gc
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, s.Transport)
	}

	c, err := NewClient(t, comm.Options{MTU: s.MTU, ClientID: s.ClientID, Logger: logger})
	if err != nil {
		_ = t.Close()
		return nil, err
	}
	if _, err := c.Init(); err != nil {
		_ = c.Close()
		return nil, err
	}
	logger.Info("module connected", "transport", s.Transport, "address", s.Address, "mtu", c.comm.MTU())
	return c, nil
}

// Init announces this client to the module and returns the server id.
func (c *Client) Init() (uint32, error) { return c.comm.Init() }

func (c *Client) Echo(data []byte) ([]byte, error) { return c.comm.Echo(data) }

func (c *Client) Comm() *comm.Client { return c.comm }

func (c *Client) Keys() *keystore.Client { return c.cb.Keys }

func (c *Client) Context() *cryptocb.Context { return c.cb }

// Invoke offloads one operation.
func (c *Client) Invoke(info *cryptocb.Info) error {
	return cryptocb.Invoke(DevID, info, c.cb)
}

// Callback returns the function to register with a crypto library.
func (c *Client) Callback() func(devID int, info *cryptocb.Info) error {
	return cryptocb.Callback(c.cb)
}

func (c *Client) Close() error { return c.comm.Close() }
