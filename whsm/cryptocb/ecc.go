package cryptocb

import (
	"github.com/bigbrett/wolfHSM/whsm/keyid"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

func (d *dispatcher) eccKeyGen(a *EcKeyGenArgs) error {
	if a.Key == nil || a.Size <= 0 {
		return ErrBadFuncArg
	}
	req := protocol.EccKeyGenReq{
		Type:    uint32(protocol.PkEcKeyGen),
		Sz:      uint32(a.Size),
		CurveID: uint32(a.Curve),
		Flags:   protocol.NvmFlagsNone,
		KeyID:   uint16(keyid.Erased),
	}
	n, err := protocol.EccKeyGenRequest.Marshal(d.buf, &req)
	if err != nil {
		return err
	}
	if n, err = d.exchange(protocol.AlgoPk, n); err != nil {
		return err
	}
	var res protocol.KeyGenRes
	if err := protocol.EccKeyGenResponse.Unmarshal(d.buf[:n], &res); err != nil {
		return err
	}
	a.Key.Curve = a.Curve
	a.Key.DevCtx = keyid.RefTo(keyid.KeyID(res.KeyID))
	return nil
}

func (d *dispatcher) ecdh(a *EcdhArgs) error {
	priv, pub := a.Private, a.Public
	if priv == nil || pub == nil {
		return ErrBadFuncArg
	}
	return d.withKey(priv.DevCtx, priv.marshal, func(privID keyid.KeyID) error {
		return d.withKey(pub.DevCtx, pub.marshal, func(pubID keyid.KeyID) error {
			req := protocol.EcdhReq{
				Type:         uint32(protocol.PkEcdh),
				CurveID:      uint32(priv.Curve),
				PrivateKeyID: uint16(privID),
				PublicKeyID:  uint16(pubID),
			}
			d.reset()
			n, err := protocol.EcdhRequest.Marshal(d.buf, &req)
			if err != nil {
				return err
			}
			if n, err = d.exchange(protocol.AlgoPk, n); err != nil {
				return err
			}
			var res protocol.SizeRes
			var out []byte
			if err := protocol.EcdhResponse.Unmarshal(d.buf[:n], &res, &out); err != nil {
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

func (d *dispatcher) eccSign(a *EccSignArgs) error {
	k := a.Key
	if k == nil || len(a.In) == 0 {
		return ErrBadFuncArg
	}
	req := protocol.EccSignReq{
		Type:    uint32(protocol.PkEcdsaSign),
		CurveID: uint32(k.Curve),
		Sz:      uint32(len(a.In)),
	}
	if protocol.EccSignRequest.Size(&req) > d.mtu() {
		return ErrBadFuncArg
	}
	return d.withKey(k.DevCtx, k.marshal, func(id keyid.KeyID) error {
		req.KeyID = uint16(id)
		d.reset()
		n, err := protocol.EccSignRequest.Marshal(d.buf, &req, a.In)
		if err != nil {
			return err
		}
		if n, err = d.exchange(protocol.AlgoPk, n); err != nil {
			return err
		}
		var res protocol.SizeRes
		var sig []byte
		if err := protocol.EccSignResponse.Unmarshal(d.buf[:n], &res, &sig); err != nil {
			return err
		}
		if len(a.Out) < len(sig) {
			return ErrBuffer
		}
		copy(a.Out, sig)
		setLen(a.OutLen, len(sig))
		return nil
	})
}

// eccVerify asks for the module's public key when the local object has
// none, and keeps it.
func (d *dispatcher) eccVerify(a *EccVerifyArgs) error {
	k := a.Key
	if k == nil || a.Res == nil || len(a.Sig) == 0 || len(a.Hash) == 0 {
		return ErrBadFuncArg
	}
	*a.Res = false
	req := protocol.EccVerifyReq{
		Type:    uint32(protocol.PkEcdsaVerify),
		CurveID: uint32(k.Curve),
		SigSz:   uint32(len(a.Sig)),
		HashSz:  uint32(len(a.Hash)),
	}
	if k.public() == nil {
		req.Options |= protocol.EccVerifyExportPub
	}
	if protocol.EccVerifyRequest.Size(&req) > d.mtu() {
		return ErrBadFuncArg
	}
	return d.withKey(k.DevCtx, k.marshal, func(id keyid.KeyID) error {
		req.KeyID = uint16(id)
		d.reset()
		n, err := protocol.EccVerifyRequest.Marshal(d.buf, &req, a.Sig, a.Hash)
		if err != nil {
			return err
		}
		if n, err = d.exchange(protocol.AlgoPk, n); err != nil {
			return err
		}
		var res protocol.EccVerifyRes
		var pub []byte
		if err := protocol.EccVerifyResponse.Unmarshal(d.buf[:n], &res, &pub); err != nil {
			return err
		}
		*a.Res = res.Res == 1
		if len(pub) > 0 && k.Pub == nil {
			return k.decodePublic(pub)
		}
		return nil
	})
}

func (d *dispatcher) eccCheck(a *EccCheckArgs) error {
	k := a.Key
	if k == nil {
		return ErrBadFuncArg
	}
	return d.withKey(k.DevCtx, k.marshal, func(id keyid.KeyID) error {
		req := protocol.EccCheckReq{
			Type:    uint32(protocol.PkEcCheckPrivKey),
			CurveID: uint32(k.Curve),
			KeyID:   uint16(id),
		}
		d.reset()
		n, err := protocol.EccCheckRequest.Marshal(d.buf, &req)
		if err != nil {
			return err
		}
		if n, err = d.exchange(protocol.AlgoPk, n); err != nil {
			return err
		}
		var res protocol.OkRes
		return protocol.EccCheckResponse.Unmarshal(d.buf[:n], &res)
	})
}
