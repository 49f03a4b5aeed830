package cryptocb

import "github.com/bigbrett/wolfHSM/whsm/protocol"

func (d *dispatcher) pk(p *PkInfo) error {
	switch p.Type {
	case protocol.PkRsaKeyGen:
		return d.rsaKeyGen(&p.RsaKeyGen)
	case protocol.PkRsa:
		return d.rsa(&p.Rsa)
	case protocol.PkRsaGetSize:
		return d.rsaGetSize(&p.RsaGetSize)
	case protocol.PkEcKeyGen:
		return d.eccKeyGen(&p.EcKeyGen)
	case protocol.PkEcdh:
		return d.ecdh(&p.Ecdh)
	case protocol.PkEcdsaSign:
		return d.eccSign(&p.EccSign)
	case protocol.PkEcdsaVerify:
		return d.eccVerify(&p.EccVerify)
	case protocol.PkEcCheckPrivKey:
		return d.eccCheck(&p.EccCheck)
	case protocol.PkCurve25519KeyGen:
		return d.curve25519KeyGen(&p.Curve25519KeyGen)
	case protocol.PkCurve25519:
		return d.curve25519(&p.Curve25519)
	default:
		return ErrUnavailable
	}
}
