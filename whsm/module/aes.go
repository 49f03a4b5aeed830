package module

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

const gcmStandardNonce = 12

func (s *Server) handleCrypto(algo protocol.AlgoType, req, resp []byte) (int, error) {
	switch algo {
	case protocol.AlgoCipher:
		return s.handleCipher(req, resp)
	case protocol.AlgoPk:
		return s.handlePk(req, resp)
	case protocol.AlgoRng:
		return s.rng(req, resp)
	case protocol.AlgoCmac:
		return s.cmac(req, resp)
	default:
		return 0, fail(protocol.StatusNoHandler)
	}
}

func (s *Server) handleCipher(req, resp []byte) (int, error) {
	t, err := protocol.PeekType(req)
	if err != nil {
		return 0, err
	}
	switch protocol.CipherType(t) {
	case protocol.CipherAesCbc:
		return s.aesCbc(req, resp)
	case protocol.CipherAesGcm:
		return s.aesGcm(req, resp)
	default:
		return 0, fail(protocol.CryptoUnavailable)
	}
}

// cipherKey returns the inline key, or the cached one when none was sent.
func (s *Server) cipherKey(inline []byte, id uint16) ([]byte, error) {
	if len(inline) > 0 {
		return inline, nil
	}
	return s.loadKey(id)
}

func (s *Server) aesCbc(req, resp []byte) (int, error) {
	var m protocol.AesCbcReq
	var key, iv, in []byte
	if err := protocol.AesCbcRequest.Unmarshal(req, &m, &key, &iv, &in); err != nil {
		return 0, err
	}
	if len(in)%protocol.AesBlockSize != 0 {
		return 0, fail(protocol.CryptoBadLength)
	}
	key, err := s.cipherKey(key, m.KeyID)
	if err != nil {
		return 0, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return 0, fail(protocol.CryptoBadFuncArg)
	}

	res := protocol.AesCbcRes{Sz: m.Sz}
	out := make([]byte, len(in))
	if m.Enc != 0 {
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, in)
	} else {
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, in)
	}
	return protocol.AesCbcResponse.Marshal(resp, &res, out)
}

func (s *Server) aesGcm(req, resp []byte) (int, error) {
	var m protocol.AesGcmReq
	var key, iv, in, authIn, tag []byte
	if err := protocol.AesGcmRequest.Unmarshal(req, &m, &key, &iv, &in, &authIn, &tag); err != nil {
		return 0, err
	}
	key, err := s.cipherKey(key, m.KeyID)
	if err != nil {
		return 0, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return 0, fail(protocol.CryptoBadFuncArg)
	}
	aead, err := newGCM(block, len(iv), int(m.AuthTagSz))
	if err != nil {
		return 0, fail(protocol.CryptoBadFuncArg)
	}

	if m.Enc != 0 {
		sealed := aead.Seal(nil, iv, in, authIn)
		ct, t := sealed[:len(in)], sealed[len(in):]
		res := protocol.AesGcmRes{Sz: m.Sz, AuthTagSz: m.AuthTagSz}
		return protocol.AesGcmResponse.Marshal(resp, &res, ct, t)
	}
	sealed := make([]byte, 0, len(in)+len(tag))
	sealed = append(append(sealed, in...), tag...)
	out, err := aead.Open(nil, iv, sealed, authIn)
	if err != nil {
		return 0, fail(protocol.CryptoAesGcmAuth)
	}
	res := protocol.AesGcmRes{Sz: m.Sz}
	return protocol.AesGcmResponse.Marshal(resp, &res, out, nil)
}

// newGCM picks the constructor Go offers for the iv and tag sizes given.
// Non-standard nonces only support the full 16 byte tag.
func newGCM(block cipher.Block, ivSz, tagSz int) (cipher.AEAD, error) {
	if ivSz == gcmStandardNonce {
		return cipher.NewGCMWithTagSize(block, tagSz)
	}
	if tagSz != protocol.AesBlockSize {
		return nil, errBadTag
	}
	return cipher.NewGCMWithNonceSize(block, ivSz)
}
