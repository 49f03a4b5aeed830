package cryptocb

import (
	"github.com/bigbrett/wolfHSM/whsm/keyid"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

// rsaKeyGen generates on the module, then exports the new key so the local
// object is usable without another round trip.
func (d *dispatcher) rsaKeyGen(a *RsaKeyGenArgs) error {
	if a.Key == nil || a.Size <= 0 || a.E <= 0 {
		return ErrBadFuncArg
	}
	req := protocol.RsaKeyGenReq{
		Type:  uint32(protocol.PkRsaKeyGen),
		Size:  uint32(a.Size),
		E:     uint32(a.E),
		Flags: protocol.NvmFlagsNone,
		KeyID: uint16(keyid.Erased),
	}
	n, err := protocol.RsaKeyGenRequest.Marshal(d.buf, &req)
	if err != nil {
		return err
	}
	if n, err = d.exchange(protocol.AlgoPk, n); err != nil {
		return err
	}
	var res protocol.KeyGenRes
	if err := protocol.RsaKeyGenResponse.Unmarshal(d.buf[:n], &res); err != nil {
		return err
	}
	id := keyid.KeyID(res.KeyID)
	a.Key.DevCtx = keyid.RefTo(id)

	s := d.ctx.Comm.Borrow()
	defer d.ctx.Comm.Release(s)
	m, _, err := d.ctx.Keys.Export(id, s.Bytes())
	if err != nil {
		return err
	}
	return a.Key.decode(s.Bytes()[:m])
}

func (d *dispatcher) rsa(a *RsaArgs) error {
	k := a.Key
	if k == nil || len(a.In) == 0 {
		return ErrBadFuncArg
	}
	req := protocol.RsaReq{
		Type:   uint32(protocol.PkRsa),
		OpType: uint32(a.Op),
		InLen:  uint32(len(a.In)),
		OutLen: uint32(d.outCap(len(a.Out), protocol.RsaResponse.Size(&protocol.RsaRes{}))),
	}
	if protocol.RsaRequest.Size(&req) > d.mtu() {
		return ErrBadFuncArg
	}

	return d.withKey(k.DevCtx, k.marshal, func(id keyid.KeyID) error {
		req.KeyID = uint16(id)
		d.reset()
		n, err := protocol.RsaRequest.Marshal(d.buf, &req, a.In)
		if err != nil {
			return err
		}
		if n, err = d.exchange(protocol.AlgoPk, n); err != nil {
			return err
		}
		var res protocol.RsaRes
		var out []byte
		if err := protocol.RsaResponse.Unmarshal(d.buf[:n], &res, &out); err != nil {
			return err
		}
		if len(out) > len(a.Out) {
			return Status(protocol.CryptoRsaBuffer)
		}
		copy(a.Out, out)
		setLen(a.OutLen, len(out))
		return nil
	})
}

func (d *dispatcher) rsaGetSize(a *RsaGetSizeArgs) error {
	k := a.Key
	if k == nil || a.KeySize == nil {
		return ErrBadFuncArg
	}
	return d.withKey(k.DevCtx, k.marshal, func(id keyid.KeyID) error {
		req := protocol.RsaGetSizeReq{Type: uint32(protocol.PkRsaGetSize), KeyID: uint16(id)}
		d.reset()
		n, err := protocol.RsaGetSizeRequest.Marshal(d.buf, &req)
		if err != nil {
			return err
		}
		if n, err = d.exchange(protocol.AlgoPk, n); err != nil {
			return err
		}
		var res protocol.RsaGetSizeRes
		if err := protocol.RsaGetSizeResponse.Unmarshal(d.buf[:n], &res); err != nil {
			return err
		}
		*a.KeySize = int(res.KeySize)
		return nil
	})
}
