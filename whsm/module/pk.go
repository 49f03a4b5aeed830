package module

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"math/big"

	"github.com/bigbrett/wolfHSM/whsm/crypto"
	"github.com/bigbrett/wolfHSM/whsm/keyid"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

var errBadTag = errors.New("module: unsupported gcm tag size")

// rsaExponent is the only public exponent crypto/rsa generates.
const rsaExponent = 65537

func (s *Server) handlePk(req, resp []byte) (int, error) {
	t, err := protocol.PeekType(req)
	if err != nil {
		return 0, err
	}
	switch protocol.PkType(t) {
	case protocol.PkRsaKeyGen:
		return s.rsaKeyGen(req, resp)
	case protocol.PkRsa:
		return s.rsa(req, resp)
	case protocol.PkRsaGetSize:
		return s.rsaGetSize(req, resp)
	case protocol.PkEcKeyGen:
		return s.eccKeyGen(req, resp)
	case protocol.PkEcdh:
		return s.ecdh(req, resp)
	case protocol.PkEcdsaSign:
		return s.eccSign(req, resp)
	case protocol.PkEcdsaVerify:
		return s.eccVerify(req, resp)
	case protocol.PkEcCheckPrivKey:
		return s.eccCheck(req, resp)
	case protocol.PkCurve25519KeyGen:
		return s.curve25519KeyGen(req, resp)
	case protocol.PkCurve25519:
		return s.curve25519(req, resp)
	default:
		return 0, fail(protocol.CryptoUnavailable)
	}
}

func (s *Server) rsaKeyGen(req, resp []byte) (int, error) {
	var m protocol.RsaKeyGenReq
	if err := protocol.RsaKeyGenRequest.Unmarshal(req, &m); err != nil {
		return 0, err
	}
	if m.E != rsaExponent || m.Size < 1024 || m.Size%8 != 0 {
		return 0, fail(protocol.CryptoBadFuncArg)
	}
	priv, err := rsa.GenerateKey(s.opts.Rand, int(m.Size))
	if err != nil {
		return 0, fail(protocol.CryptoMemory)
	}
	id, err := s.storeKey(m.Flags, m.Label, x509.MarshalPKCS1PrivateKey(priv))
	if err != nil {
		return 0, err
	}
	res := protocol.KeyGenRes{KeyID: uint16(keyid.ToClient(id))}
	return protocol.RsaKeyGenResponse.Marshal(resp, &res)
}

// loadRsa accepts PKCS#1 private or public DER. priv is nil for a public key.
func (s *Server) loadRsa(id uint16) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	der, err := s.loadKey(id)
	if err != nil {
		return nil, nil, err
	}
	if priv, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return priv, &priv.PublicKey, nil
	}
	pub, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		return nil, nil, fail(protocol.CryptoBadFuncArg)
	}
	return nil, pub, nil
}

// rsa applies the raw RSA primitive. Padding is the caller's business.
func (s *Server) rsa(req, resp []byte) (int, error) {
	var m protocol.RsaReq
	var in []byte
	if err := protocol.RsaRequest.Unmarshal(req, &m, &in); err != nil {
		return 0, err
	}
	priv, pub, err := s.loadRsa(m.KeyID)
	if err != nil {
		return 0, err
	}
	k := pub.Size()
	if int(m.OutLen) < k {
		return 0, fail(protocol.CryptoRsaBuffer)
	}
	x := new(big.Int).SetBytes(in)
	if len(in) > k || x.Cmp(pub.N) >= 0 {
		return 0, fail(protocol.CryptoRsaOutOfRange)
	}

	var y *big.Int
	switch protocol.RsaOp(m.OpType) {
	case protocol.RsaPublicEncrypt, protocol.RsaPublicDecrypt:
		y = new(big.Int).Exp(x, big.NewInt(int64(pub.E)), pub.N)
	case protocol.RsaPrivateEncrypt, protocol.RsaPrivateDecrypt:
		if priv == nil {
			return 0, fail(protocol.CryptoBadFuncArg)
		}
		y = new(big.Int).Exp(x, priv.D, pub.N)
	default:
		return 0, fail(protocol.CryptoBadFuncArg)
	}
	out := y.FillBytes(make([]byte, k))
	res := protocol.RsaRes{OutLen: uint32(k)}
	return protocol.RsaResponse.Marshal(resp, &res, out)
}

func (s *Server) rsaGetSize(req, resp []byte) (int, error) {
	var m protocol.RsaGetSizeReq
	if err := protocol.RsaGetSizeRequest.Unmarshal(req, &m); err != nil {
		return 0, err
	}
	_, pub, err := s.loadRsa(m.KeyID)
	if err != nil {
		return 0, err
	}
	res := protocol.RsaGetSizeRes{KeySize: uint32(pub.Size())}
	return protocol.RsaGetSizeResponse.Marshal(resp, &res)
}

func curveFor(id protocol.CurveID) (elliptic.Curve, int, error) {
	switch id {
	case protocol.CurveP256:
		return elliptic.P256(), 32, nil
	case protocol.CurveP384:
		return elliptic.P384(), 48, nil
	case protocol.CurveP521:
		return elliptic.P521(), 66, nil
	default:
		return nil, 0, fail(protocol.CryptoBadFuncArg)
	}
}

func (s *Server) eccKeyGen(req, resp []byte) (int, error) {
	var m protocol.EccKeyGenReq
	if err := protocol.EccKeyGenRequest.Unmarshal(req, &m); err != nil {
		return 0, err
	}
	curve, size, err := curveFor(protocol.CurveID(m.CurveID))
	if err != nil {
		return 0, err
	}
	if int(m.Sz) != size {
		return 0, fail(protocol.CryptoBadFuncArg)
	}
	priv, err := ecdsa.GenerateKey(curve, s.opts.Rand)
	if err != nil {
		return 0, fail(protocol.CryptoMemory)
	}
	der, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return 0, fail(protocol.CryptoBadFuncArg)
	}
	id, err := s.storeKey(m.Flags, m.Label, der)
	if err != nil {
		return 0, err
	}
	res := protocol.KeyGenRes{KeyID: uint16(keyid.ToClient(id))}
	return protocol.EccKeyGenResponse.Marshal(resp, &res)
}

// loadEcc accepts SEC1 private or PKIX public DER.
func (s *Server) loadEcc(id uint16) (*ecdsa.PrivateKey, *ecdsa.PublicKey, error) {
	der, err := s.loadKey(id)
	if err != nil {
		return nil, nil, err
	}
	if priv, err := x509.ParseECPrivateKey(der); err == nil {
		return priv, &priv.PublicKey, nil
	}
	if pub, err := x509.ParsePKIXPublicKey(der); err == nil {
		if ep, ok := pub.(*ecdsa.PublicKey); ok {
			return nil, ep, nil
		}
	}
	return nil, nil, fail(protocol.CryptoBadFuncArg)
}

func (s *Server) ecdh(req, resp []byte) (int, error) {
	var m protocol.EcdhReq
	if err := protocol.EcdhRequest.Unmarshal(req, &m); err != nil {
		return 0, err
	}
	priv, _, err := s.loadEcc(m.PrivateKeyID)
	if err != nil {
		return 0, err
	}
	_, pub, err := s.loadEcc(m.PublicKeyID)
	if err != nil {
		return 0, err
	}
	if priv == nil {
		return 0, fail(protocol.CryptoEccPrivKey)
	}
	ep, err := priv.ECDH()
	if err != nil {
		return 0, fail(protocol.CryptoEccPrivKey)
	}
	epub, err := pub.ECDH()
	if err != nil {
		return 0, fail(protocol.CryptoBadFuncArg)
	}
	secret, err := ep.ECDH(epub)
	if err != nil {
		return 0, fail(protocol.CryptoBadFuncArg)
	}
	res := protocol.SizeRes{Sz: uint32(len(secret))}
	return protocol.EcdhResponse.Marshal(resp, &res, secret)
}

func (s *Server) eccSign(req, resp []byte) (int, error) {
	var m protocol.EccSignReq
	var hash []byte
	if err := protocol.EccSignRequest.Unmarshal(req, &m, &hash); err != nil {
		return 0, err
	}
	priv, _, err := s.loadEcc(m.KeyID)
	if err != nil {
		return 0, err
	}
	if priv == nil {
		return 0, fail(protocol.CryptoEccPrivKey)
	}
	sig, err := ecdsa.SignASN1(s.opts.Rand, priv, hash)
	if err != nil {
		return 0, fail(protocol.CryptoBadFuncArg)
	}
	res := protocol.SizeRes{Sz: uint32(len(sig))}
	return protocol.EccSignResponse.Marshal(resp, &res, sig)
}

func (s *Server) eccVerify(req, resp []byte) (int, error) {
	var m protocol.EccVerifyReq
	var sig, hash []byte
	if err := protocol.EccVerifyRequest.Unmarshal(req, &m, &sig, &hash); err != nil {
		return 0, err
	}
	_, pub, err := s.loadEcc(m.KeyID)
	if err != nil {
		return 0, err
	}
	var res protocol.EccVerifyRes
	if ecdsa.VerifyASN1(pub, hash, sig) {
		res.Res = 1
	}
	var der []byte
	if m.Options&protocol.EccVerifyExportPub != 0 {
		if der, err = x509.MarshalPKIXPublicKey(pub); err != nil {
			return 0, fail(protocol.CryptoBadFuncArg)
		}
		res.PubSz = uint32(len(der))
	}
	return protocol.EccVerifyResponse.Marshal(resp, &res, der)
}

func (s *Server) eccCheck(req, resp []byte) (int, error) {
	var m protocol.EccCheckReq
	if err := protocol.EccCheckRequest.Unmarshal(req, &m); err != nil {
		return 0, err
	}
	priv, _, err := s.loadEcc(m.KeyID)
	if err != nil {
		return 0, err
	}
	if priv == nil {
		return 0, fail(protocol.CryptoEccPrivKey)
	}
	if _, err := priv.ECDH(); err != nil {
		return 0, fail(protocol.CryptoEccPrivKey)
	}
	res := protocol.OkRes{Ok: 1}
	return protocol.EccCheckResponse.Marshal(resp, &res)
}

func (s *Server) curve25519KeyGen(req, resp []byte) (int, error) {
	var m protocol.Curve25519KeyGenReq
	if err := protocol.Curve25519KeyGenRequest.Unmarshal(req, &m); err != nil {
		return 0, err
	}
	if m.Sz != protocol.Curve25519KeySize {
		return 0, fail(protocol.CryptoBadFuncArg)
	}
	kp, err := crypto.GenerateX25519(s.opts.Rand)
	if err != nil {
		return 0, fail(protocol.CryptoMemory)
	}
	material := append(kp.PublicKey[:], kp.PrivateKey[:]...)
	id, err := s.storeKey(m.Flags, m.Label, material)
	clear(material)
	if err != nil {
		return 0, err
	}
	res := protocol.KeyGenRes{KeyID: uint16(keyid.ToClient(id))}
	return protocol.Curve25519KeyGenResponse.Marshal(resp, &res)
}

// loadCurve25519 splits stored pub||priv material. hasPriv is false for a
// public-only key.
func (s *Server) loadCurve25519(id uint16) (pub, priv [protocol.Curve25519KeySize]byte, hasPriv bool, err error) {
	b, err := s.loadKey(id)
	if err != nil {
		return pub, priv, false, err
	}
	defer clear(b)
	switch len(b) {
	case protocol.Curve25519KeySize:
	case 2 * protocol.Curve25519KeySize:
		copy(priv[:], b[protocol.Curve25519KeySize:])
		hasPriv = true
	default:
		return pub, priv, false, fail(protocol.CryptoBadFuncArg)
	}
	copy(pub[:], b)
	return pub, priv, hasPriv, nil
}

func (s *Server) curve25519(req, resp []byte) (int, error) {
	var m protocol.Curve25519Req
	if err := protocol.Curve25519Request.Unmarshal(req, &m); err != nil {
		return 0, err
	}
	_, priv, hasPriv, err := s.loadCurve25519(m.PrivateKeyID)
	if err != nil {
		return 0, err
	}
	if !hasPriv {
		return 0, fail(protocol.CryptoBadFuncArg)
	}
	pub, _, _, err := s.loadCurve25519(m.PublicKeyID)
	if err != nil {
		return 0, err
	}
	secret, err := crypto.ECDH(priv, pub)
	clear(priv[:])
	if err != nil {
		return 0, fail(protocol.CryptoBadFuncArg)
	}
	if m.Endian == protocol.EndianBig {
		crypto.Reverse(secret)
	}
	res := protocol.SizeRes{Sz: uint32(len(secret))}
	return protocol.Curve25519Response.Marshal(resp, &res, secret)
}
