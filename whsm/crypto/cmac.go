package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"hash"
)

const cmacBlockSize = aes.BlockSize

type cmac struct {
	c      cipher.Block
	k1, k2 [cmacBlockSize]byte
	x      [cmacBlockSize]byte
	buf    [cmacBlockSize]byte
	n      int
}

// NewCMAC returns an incremental AES-CMAC over key.
func NewCMAC(key []byte) (hash.Hash, error) {
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	m := &cmac{c: c}
	var l [cmacBlockSize]byte
	c.Encrypt(l[:], l[:])
	dbl(&m.k1, &l)
	dbl(&m.k2, &m.k1)
	return m, nil
}

// dbl is doubling in GF(2^128).
func dbl(dst, src *[cmacBlockSize]byte) {
	msb := src[0] >> 7
	var carry byte
	for i := cmacBlockSize - 1; i >= 0; i-- {
		b := src[i]
		dst[i] = b<<1 | carry
		carry = b >> 7
	}
	dst[cmacBlockSize-1] ^= 0x87 * msb
}

func (m *cmac) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		// The last block is held back until Sum.
		if m.n == cmacBlockSize {
			subtle.XORBytes(m.x[:], m.x[:], m.buf[:])
			m.c.Encrypt(m.x[:], m.x[:])
			m.n = 0
		}
		c := copy(m.buf[m.n:], p)
		m.n += c
		p = p[c:]
	}
	return n, nil
}

func (m *cmac) Sum(b []byte) []byte {
	var last [cmacBlockSize]byte
	if m.n == cmacBlockSize {
		subtle.XORBytes(last[:], m.buf[:], m.k1[:])
	} else {
		copy(last[:], m.buf[:m.n])
		last[m.n] = 0x80
		subtle.XORBytes(last[:], last[:], m.k2[:])
	}
	x := m.x
	subtle.XORBytes(x[:], x[:], last[:])
	m.c.Encrypt(x[:], x[:])
	return append(b, x[:]...)
}

func (m *cmac) Reset() {
	m.x = [cmacBlockSize]byte{}
	m.buf = [cmacBlockSize]byte{}
	m.n = 0
}

func (m *cmac) Size() int { return cmacBlockSize }

func (m *cmac) BlockSize() int { return cmacBlockSize }
