package cryptocb

import (
	"github.com/bigbrett/wolfHSM/whsm/keystore"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

func (d *dispatcher) cipher(c *CipherInfo) error {
	switch c.Type {
	case protocol.CipherAesCbc:
		return d.aesCbc(c.Enc, &c.AesCbc)
	case protocol.CipherAesGcm:
		return d.aesGcm(c.Enc, &c.AesGcm)
	default:
		return ErrUnavailable
	}
}

func (d *dispatcher) aesCbc(enc bool, a *AesCbcArgs) error {
	aes := a.Aes
	if aes == nil {
		return ErrBadFuncArg
	}
	sz := len(a.In)
	if sz == 0 {
		return ErrBadFuncArg
	}
	if sz%protocol.AesBlockSize != 0 {
		return ErrBadLength
	}
	if len(a.Out) < sz {
		return ErrBuffer
	}

	keyID := keystore.Resolve(aes.DevCtx)
	remote := !keyID.IsErased()
	key := aes.Key
	if remote {
		key = nil
	}
	req := protocol.AesCbcReq{
		Type:   uint32(protocol.CipherAesCbc),
		Enc:    b2u(enc),
		KeyLen: uint32(len(key)),
		Sz:     uint32(sz),
		KeyID:  uint16(keyID),
	}
	if protocol.AesCbcRequest.Size(&req) > d.mtu() {
		return sizeErr(remote, ErrBadLength)
	}

	// The chaining register follows the ciphertext. On decrypt that is the
	// input, which an in-place call overwrites.
	var last [protocol.AesBlockSize]byte
	copy(last[:], a.In[sz-protocol.AesBlockSize:])

	n, err := protocol.AesCbcRequest.Marshal(d.buf, &req, key, aes.Reg[:], a.In)
	if err != nil {
		return err
	}
	if n, err = d.exchange(protocol.AlgoCipher, n); err != nil {
		return err
	}
	var res protocol.AesCbcRes
	var out []byte
	if err := protocol.AesCbcResponse.Unmarshal(d.buf[:n], &res, &out); err != nil {
		return err
	}
	if len(out) != sz {
		return ErrBadLength
	}
	copy(a.Out, out)

	if enc {
		copy(aes.Reg[:], a.Out[sz-protocol.AesBlockSize:sz])
	} else {
		aes.Reg = last
	}
	return nil
}

func (d *dispatcher) aesGcm(enc bool, a *AesGcmArgs) error {
	aes := a.Aes
	if aes == nil || len(a.Iv) == 0 {
		return ErrBadFuncArg
	}
	sz := len(a.In)
	if len(a.Out) < sz {
		return ErrBuffer
	}

	keyID := keystore.Resolve(aes.DevCtx)
	remote := !keyID.IsErased()
	key := aes.Key
	if remote {
		key = nil
	}
	req := protocol.AesGcmReq{
		Type:      uint32(protocol.CipherAesGcm),
		Enc:       b2u(enc),
		KeyLen:    uint32(len(key)),
		Sz:        uint32(sz),
		IvSz:      uint32(len(a.Iv)),
		AuthInSz:  uint32(len(a.AuthIn)),
		AuthTagSz: uint32(len(a.AuthTag)),
		KeyID:     uint16(keyID),
	}
	res := protocol.AesGcmRes{Sz: req.Sz}
	if enc {
		res.AuthTagSz = req.AuthTagSz
	}
	if protocol.AesGcmRequest.Size(&req) > d.mtu() || protocol.AesGcmResponse.Size(&res) > d.mtu() {
		return sizeErr(remote, ErrUnavailable)
	}

	var tagIn []byte
	if !enc {
		tagIn = a.AuthTag
	}
	n, err := protocol.AesGcmRequest.Marshal(d.buf, &req, key, a.Iv, a.In, a.AuthIn, tagIn)
	if err != nil {
		return err
	}
	if n, err = d.exchange(protocol.AlgoCipher, n); err != nil {
		return err
	}
	var out, tag []byte
	if err := protocol.AesGcmResponse.Unmarshal(d.buf[:n], &res, &out, &tag); err != nil {
		return err
	}
	if len(out) != sz || (enc && len(tag) != len(a.AuthTag)) {
		return ErrBadLength
	}
	copy(a.Out, out)
	if enc {
		copy(a.AuthTag, tag)
	}
	return nil
}
