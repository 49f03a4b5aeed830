package crypto

import (
	"errors"
	"io"

	"golang.org/x/crypto/curve25519"
)

// X25519KeyPair is a Curve25519 key pair in little-endian wire form.
type X25519KeyPair struct {
	PublicKey  [32]byte
	PrivateKey [32]byte
}

var (
	ErrInvalidPublicKey = errors.New("crypto: invalid X25519 public key")
)

// GenerateX25519 draws a clamped private key from rand and derives the
// public key.
func GenerateX25519(rand io.Reader) (X25519KeyPair, error) {
	var kp X25519KeyPair
	if _, err := io.ReadFull(rand, kp.PrivateKey[:]); err != nil {
		return X25519KeyPair{}, err
	}
	// Clamp private key per RFC 7748
	kp.PrivateKey[0] &= 248
	kp.PrivateKey[31] &= 127
	kp.PrivateKey[31] |= 64

	curve25519.ScalarBaseMult(&kp.PublicKey, &kp.PrivateKey)
	return kp, nil
}

// X25519Public derives the public key for priv.
func X25519Public(priv [32]byte) ([32]byte, error) {
	var pub [32]byte
	out, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return pub, err
	}
	copy(pub[:], out)
	return pub, nil
}

// ECDH computes the raw X25519 shared secret, little endian.
func ECDH(privateKey, peerPublicKey [32]byte) ([]byte, error) {
	var zero [32]byte
	if peerPublicKey == zero {
		return nil, ErrInvalidPublicKey
	}
	shared, err := curve25519.X25519(privateKey[:], peerPublicKey[:])
	if err != nil {
		return nil, err
	}
	return shared, nil
}

// Reverse flips b in place, converting between little and big endian.
func Reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
