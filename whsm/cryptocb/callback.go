// Package cryptocb routes individual crypto operations to a security module.
//
// Invoke is the single entry point. It takes a tagged operation descriptor,
// marshals it into one packet within the comm MTU, exchanges it with the
// module and writes results back into the caller's buffers. Operations it
// does not handle return ErrUnavailable so the caller can compute locally.
package cryptocb

import (
	"errors"
	"log/slog"

	"github.com/bigbrett/wolfHSM/whsm/comm"
	"github.com/bigbrett/wolfHSM/whsm/keyid"
	"github.com/bigbrett/wolfHSM/whsm/keystore"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

// Context is the per-client state handed to Invoke. It must not be used by
// two invocations at once.
type Context struct {
	Comm *comm.Client
	Keys *keystore.Client
}

func NewContext(c *comm.Client) *Context {
	return &Context{Comm: c, Keys: keystore.New(c)}
}

// Invoke performs info on the module behind ctx.
func Invoke(devID int, info *Info, ctx *Context) error {
	if devID == InvalidDevID || info == nil || ctx == nil || ctx.Comm == nil || ctx.Keys == nil {
		return ErrBadFuncArg
	}
	s := ctx.Comm.Borrow()
	defer ctx.Comm.Release(s)
	clear(s.Bytes())

	d := dispatcher{ctx: ctx, buf: s.Bytes(), log: ctx.Comm.Logger()}
	var err error
	switch info.AlgoType {
	case protocol.AlgoCipher:
		err = d.cipher(&info.Cipher)
	case protocol.AlgoPk:
		err = d.pk(&info.Pk)
	case protocol.AlgoRng:
		err = d.rng(&info.Rng)
	case protocol.AlgoCmac:
		err = d.cmac(&info.Cmac)
	default:
		err = ErrUnavailable
	}
	d.log.Debug("cryptocb", "dev_id", devID, "algo", info.AlgoType, "code", Code(err))
	return err
}

// Callback binds a context to the callback signature a crypto library
// registers per device id.
func Callback(ctx *Context) func(devID int, info *Info) error {
	return func(devID int, info *Info) error {
		return Invoke(devID, info, ctx)
	}
}

// dispatcher carries one invocation. buf is the borrowed request scratch;
// staging traffic borrows its own.
type dispatcher struct {
	ctx *Context
	buf []byte
	log *slog.Logger
}

func (d *dispatcher) mtu() int { return d.ctx.Comm.MTU() }

// sizeErr picks the size failure: a module key leaves no local fallback.
func sizeErr(remote bool, local error) error {
	if remote {
		return ErrBadFuncArg
	}
	return local
}

// outCap bounds a caller's output buffer length to what one response with
// the given fixed size can carry.
func (d *dispatcher) outCap(n, fixed int) int {
	return max(0, min(n, d.mtu()-fixed))
}

// withKey is keystore.WithKey with a local key too large to stage reported
// as ErrBadFuncArg.
func (d *dispatcher) withKey(ref keyid.Ref, encode func() ([]byte, error), op func(keyid.KeyID) error) error {
	err := d.ctx.Keys.WithKey(ref, encode, op)
	if errors.Is(err, keystore.ErrStageTooLarge) {
		return ErrBadFuncArg
	}
	return err
}

// exchange sends buf[:n] as a crypto request and returns the response
// length once the module status is known to be OK.
func (d *dispatcher) exchange(algo protocol.AlgoType, n int) (int, error) {
	m, err := d.ctx.Comm.Exchange(protocol.GroupCrypto, uint16(algo), d.buf, n)
	if err != nil {
		return 0, err
	}
	if err := protocol.Err(d.buf[:m]); err != nil {
		return 0, err
	}
	return m, nil
}

// reset zeroes the request scratch before a packet is marshaled into it.
func (d *dispatcher) reset() {
	clear(d.buf)
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func setLen(p *int, n int) {
	if p != nil {
		*p = n
	}
}
