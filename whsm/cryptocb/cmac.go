package cryptocb

import (
	"errors"

	"github.com/bigbrett/wolfHSM/whsm/comm"
	"github.com/bigbrett/wolfHSM/whsm/keyid"
	"github.com/bigbrett/wolfHSM/whsm/keystore"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

func isProbe(a *CmacArgs) bool {
	return a.In == nil && a.Key == nil && a.Out == nil
}

// marshalCmac validates a and writes the request into d.buf.
func (d *dispatcher) marshalCmac(a *CmacArgs) (int, error) {
	if a.Type != protocol.CmacAes {
		return 0, ErrUnavailable
	}
	keyID := keyid.Erased
	if a.Cmac != nil {
		keyID = keystore.Resolve(a.Cmac.DevCtx)
	}
	remote := !keyID.IsErased()
	req := protocol.CmacReq{
		Type:  uint32(a.Type),
		InSz:  uint32(len(a.In)),
		KeySz: uint32(len(a.Key)),
		OutSz: uint32(d.outCap(len(a.Out), protocol.CmacResponse.Size(&protocol.CmacRes{}))),
		KeyID: uint16(keyID),
	}
	if protocol.CmacRequest.Size(&req) > d.mtu() {
		return 0, sizeErr(remote, ErrUnavailable)
	}
	return protocol.CmacRequest.Marshal(d.buf, &req, a.In, a.Key)
}

// finishCmac decodes the response already in d.buf[:n].
func (d *dispatcher) finishCmac(a *CmacArgs, n int) error {
	if err := protocol.Err(d.buf[:n]); err != nil {
		return err
	}
	var res protocol.CmacRes
	var out []byte
	if err := protocol.CmacResponse.Unmarshal(d.buf[:n], &res, &out); err != nil {
		return err
	}
	if a.Key != nil && a.Cmac != nil {
		a.Cmac.DevCtx = keyid.RefTo(keyid.KeyID(res.KeyID))
	}
	if a.Out != nil {
		if len(out) > len(a.Out) {
			return ErrBuffer
		}
		copy(a.Out, out)
		setLen(a.OutLen, len(out))
	}
	return nil
}

func (d *dispatcher) cmac(a *CmacArgs) error {
	if isProbe(a) {
		return nil
	}
	n, err := d.marshalCmac(a)
	if err != nil {
		return err
	}
	if n, err = d.ctx.Comm.Exchange(protocol.GroupCrypto, uint16(protocol.AlgoCmac), d.buf, n); err != nil {
		return err
	}
	return d.finishCmac(a, n)
}

// Pending is a CMAC request that has been sent but not collected.
type Pending struct {
	d    dispatcher
	s    *comm.Scratch
	args *CmacArgs
	done bool
	err  error
}

// SubmitCmac sends a CMAC request and returns without waiting. The caller
// collects the result with Poll. Nothing else may use ctx until Poll has
// returned something other than comm.ErrNotReady.
func SubmitCmac(devID int, a *CmacArgs, ctx *Context) (*Pending, error) {
	if devID == InvalidDevID || a == nil || ctx == nil || ctx.Comm == nil || ctx.Keys == nil {
		return nil, ErrBadFuncArg
	}
	s := ctx.Comm.Borrow()
	p := &Pending{d: dispatcher{ctx: ctx, buf: s.Bytes(), log: ctx.Comm.Logger()}, s: s, args: a}
	if isProbe(a) {
		p.finish(nil)
		return p, nil
	}

	n, err := p.d.marshalCmac(a)
	if err != nil {
		p.finish(err)
		return nil, err
	}
	if err := ctx.Comm.SendRequest(protocol.GroupCrypto, uint16(protocol.AlgoCmac), p.d.buf[:n]); err != nil {
		p.finish(err)
		return nil, err
	}
	return p, nil
}

// Poll checks once for the response. It returns comm.ErrNotReady until the
// module answers, then the operation's result on every later call.
func (p *Pending) Poll() error {
	if p.done {
		return p.err
	}
	kind, n, err := p.d.ctx.Comm.RecvResponse(p.d.buf)
	if errors.Is(err, comm.ErrNotReady) {
		return err
	}
	if err == nil && kind != protocol.MakeKind(protocol.GroupCrypto, uint16(protocol.AlgoCmac)) {
		err = comm.ErrUnexpectedResponse
	}
	if err == nil {
		err = p.d.finishCmac(p.args, n)
	}
	p.finish(err)
	return err
}

// Done reports whether Poll has a final result.
func (p *Pending) Done() bool { return p.done }

func (p *Pending) finish(err error) {
	p.done = true
	p.err = err
	p.d.ctx.Comm.Release(p.s)
	p.s = nil
	p.d.buf = nil
}
