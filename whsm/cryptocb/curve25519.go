package cryptocb

import (
	"github.com/bigbrett/wolfHSM/whsm/keyid"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

// curve25519KeyGen leaves the key material on the module; the local object
// only records that both halves now exist.
func (d *dispatcher) curve25519KeyGen(a *Curve25519KeyGenArgs) error {
	if a.Key == nil || a.Size != protocol.Curve25519KeySize {
		return ErrBadFuncArg
	}
	req := protocol.Curve25519KeyGenReq{
		Type:  uint32(protocol.PkCurve25519KeyGen),
		Sz:    uint32(a.Size),
		Flags: protocol.NvmFlagsNone,
		KeyID: uint16(keyid.Erased),
	}
	n, err := protocol.Curve25519KeyGenRequest.Marshal(d.buf, &req)
	if err != nil {
		return err
	}
	if n, err = d.exchange(protocol.AlgoPk, n); err != nil {
		return err
	}
	var res protocol.KeyGenRes
	if err := protocol.Curve25519KeyGenResponse.Unmarshal(d.buf[:n], &res); err != nil {
		return err
	}
	a.Key.DevCtx = keyid.RefTo(keyid.KeyID(res.KeyID))
	a.Key.PubSet = true
	a.Key.PrivSet = true
	return nil
}

func (d *dispatcher) curve25519(a *Curve25519Args) error {
	priv, pub := a.Private, a.Public
	if priv == nil || pub == nil {
		return ErrBadFuncArg
	}
	if a.Endian != protocol.EndianLittle && a.Endian != protocol.EndianBig {
		return ErrBadFuncArg
	}
	return d.withKey(priv.DevCtx, priv.marshal, func(privID keyid.KeyID) error {
		return d.withKey(pub.DevCtx, pub.marshal, func(pubID keyid.KeyID) error {
			req := protocol.Curve25519Req{
				Type:         uint32(protocol.PkCurve25519),
				Endian:       a.Endian,
				PrivateKeyID: uint16(privID),
				PublicKeyID:  uint16(pubID),
			}
			d.reset()
			n, err := protocol.Curve25519Request.Marshal(d.buf, &req)
			if err != nil {
				return err
			}
			if n, err = d.exchange(protocol.AlgoPk, n); err != nil {
				return err
			}
			var res protocol.SizeRes
			var out []byte
			if err := protocol.Curve25519Response.Unmarshal(d.buf[:n], &res, &out); err != nil {
				return err
			}
			if len(out) > len(a.Out) {
				return ErrBuffer
			}
			copy(a.Out, out)
			setLen(a.OutLen, len(out))
			return nil
		})
	})
}
