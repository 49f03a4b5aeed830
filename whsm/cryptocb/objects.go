package cryptocb

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/bigbrett/wolfHSM/whsm/crypto"
	"github.com/bigbrett/wolfHSM/whsm/keyid"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

// Aes is a local AES object. Reg is the chaining register carried between
// CBC calls. When DevCtx names a module key, Key is not sent.
type Aes struct {
	Key    []byte
	Reg    [protocol.AesBlockSize]byte
	DevCtx keyid.Ref
}

func NewAes(key, iv []byte) (*Aes, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: aes key length %d", ErrBadFuncArg, len(key))
	}
	a := &Aes{Key: append([]byte(nil), key...)}
	if err := a.SetIV(iv); err != nil {
		return nil, err
	}
	return a, nil
}

// NewAesRemote refers to an AES key already held by the module.
func NewAesRemote(id keyid.KeyID, iv []byte) (*Aes, error) {
	a := &Aes{DevCtx: keyid.RefTo(id)}
	if err := a.SetIV(iv); err != nil {
		return nil, err
	}
	return a, nil
}

// SetIV loads the chaining register. A nil iv clears it.
func (a *Aes) SetIV(iv []byte) error {
	if iv != nil && len(iv) != protocol.AesBlockSize {
		return fmt.Errorf("%w: iv length %d", ErrBadFuncArg, len(iv))
	}
	a.Reg = [protocol.AesBlockSize]byte{}
	copy(a.Reg[:], iv)
	return nil
}

// RsaKey holds local RSA material, a module reference, or both.
type RsaKey struct {
	Priv   *rsa.PrivateKey
	Pub    *rsa.PublicKey
	DevCtx keyid.Ref
}

func (k *RsaKey) public() *rsa.PublicKey {
	if k.Pub != nil {
		return k.Pub
	}
	if k.Priv != nil {
		return &k.Priv.PublicKey
	}
	return nil
}

// marshal encodes the local key as PKCS#1 DER, private if available.
func (k *RsaKey) marshal() ([]byte, error) {
	if k.Priv != nil {
		return x509.MarshalPKCS1PrivateKey(k.Priv), nil
	}
	if pub := k.public(); pub != nil {
		return x509.MarshalPKCS1PublicKey(pub), nil
	}
	return nil, ErrBadFuncArg
}

func (k *RsaKey) decode(der []byte) error {
	priv, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return fmt.Errorf("cryptocb: decode rsa key: %w", err)
	}
	k.Priv = priv
	k.Pub = &priv.PublicKey
	return nil
}

// EccKey holds local ECC material, a module reference, or both.
type EccKey struct {
	Curve  protocol.CurveID
	Priv   *ecdsa.PrivateKey
	Pub    *ecdsa.PublicKey
	DevCtx keyid.Ref
}

func (k *EccKey) public() *ecdsa.PublicKey {
	if k.Pub != nil {
		return k.Pub
	}
	if k.Priv != nil {
		return &k.Priv.PublicKey
	}
	return nil
}

// marshal encodes the local key as SEC1 DER when private, PKIX otherwise.
func (k *EccKey) marshal() ([]byte, error) {
	if k.Priv != nil {
		return x509.MarshalECPrivateKey(k.Priv)
	}
	if pub := k.public(); pub != nil {
		return x509.MarshalPKIXPublicKey(pub)
	}
	return nil, ErrBadFuncArg
}

var errNotEcdsa = errors.New("cryptocb: not an ecdsa public key")

func (k *EccKey) decodePublic(der []byte) error {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return fmt.Errorf("cryptocb: decode ecc public key: %w", err)
	}
	ep, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return errNotEcdsa
	}
	k.Pub = ep
	return nil
}

// Curve25519Key is a local X25519 key. After a module keygen the Set flags
// are true while the bytes stay on the module.
type Curve25519Key struct {
	Priv    [protocol.Curve25519KeySize]byte
	Pub     [protocol.Curve25519KeySize]byte
	PrivSet bool
	PubSet  bool
	DevCtx  keyid.Ref
}

// NewCurve25519Key builds a local key pair from a private scalar.
func NewCurve25519Key(priv [protocol.Curve25519KeySize]byte) (*Curve25519Key, error) {
	pub, err := crypto.X25519Public(priv)
	if err != nil {
		return nil, err
	}
	return &Curve25519Key{Priv: priv, Pub: pub, PrivSet: true, PubSet: true}, nil
}

// NewCurve25519Public wraps a peer public key.
func NewCurve25519Public(pub [protocol.Curve25519KeySize]byte) *Curve25519Key {
	return &Curve25519Key{Pub: pub, PubSet: true}
}

// marshal encodes pub, followed by priv when present.
func (k *Curve25519Key) marshal() ([]byte, error) {
	if !k.PubSet {
		return nil, ErrBadFuncArg
	}
	out := append([]byte(nil), k.Pub[:]...)
	if k.PrivSet {
		out = append(out, k.Priv[:]...)
	}
	return out, nil
}

// Cmac tracks the module key behind a streaming CMAC.
type Cmac struct {
	DevCtx keyid.Ref
}
