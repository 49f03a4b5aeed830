package crypto

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"testing"
)

func TestX25519ECDH(t *testing.T) {
	alice, err := GenerateX25519(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	bob, err := GenerateX25519(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}

	sharedAlice, err := ECDH(alice.PrivateKey, bob.PublicKey)
	if err != nil {
		t.Fatalf("ECDH alice: %v", err)
	}
	sharedBob, err := ECDH(bob.PrivateKey, alice.PublicKey)
	if err != nil {
		t.Fatalf("ECDH bob: %v", err)
	}

	if !bytes.Equal(sharedAlice, sharedBob) {
		t.Fatalf("shared secrets do not match")
	}

	if _, err := ECDH(alice.PrivateKey, [32]byte{}); err != ErrInvalidPublicKey {
		t.Fatalf("expected ErrInvalidPublicKey, got %v", err)
	}
}

func TestX25519Public(t *testing.T) {
	kp, err := GenerateX25519(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	pub, err := X25519Public(kp.PrivateKey)
	if err != nil {
		t.Fatalf("X25519Public: %v", err)
	}
	if pub != kp.PublicKey {
		t.Fatalf("derived public key mismatch")
	}
}

func unhex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("DecodeString: %v", err)
	}
	return b
}

// RFC 4493 section 4 examples.
func TestCMACVectors(t *testing.T) {
	key := unhex(t, "2b7e151628aed2a6abf7158809cf4f3c")
	msg := unhex(t, "6bc1bee22e409f96e93d7e117393172a"+
		"ae2d8a571e03ac9c9eb76fac45af8e51"+
		"30c81c46a35ce411e5fbc1191a0a52ef"+
		"f69f2445df4f9b17ad2b417be66c3710")
	cases := []struct {
		n   int
		tag string
	}{
		{0, "bb1d6929e95937287fa37d129b756746"},
		{16, "070a16b46b4d4144f79bdd9dd04a287c"},
		{40, "dfa66747de9ae63030ca32611497c827"},
		{64, "51f0bebf7e3b9d92fc49741779363cfe"},
	}
	for _, tc := range cases {
		m, err := NewCMAC(key)
		if err != nil {
			t.Fatalf("NewCMAC: %v", err)
		}
		m.Write(msg[:tc.n])
		if got := hex.EncodeToString(m.Sum(nil)); got != tc.tag {
			t.Fatalf("len %d: tag %s, want %s", tc.n, got, tc.tag)
		}
	}
}

func TestCMACIncremental(t *testing.T) {
	key := make([]byte, 16)
	msg := make([]byte, 100)
	for i := range msg {
		msg[i] = byte(i)
	}
	one, _ := NewCMAC(key)
	one.Write(msg)
	want := one.Sum(nil)

	inc, _ := NewCMAC(key)
	for _, chunk := range [][]byte{msg[:3], msg[3:16], msg[16:17], msg[17:64], msg[64:]} {
		inc.Write(chunk)
	}
	if !bytes.Equal(inc.Sum(nil), want) {
		t.Fatalf("incremental tag differs from one-shot tag")
	}
}

func BenchmarkCMAC(b *testing.B) {
	m, _ := NewCMAC(make([]byte, 16))
	data := make([]byte, 1024)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Reset()
		m.Write(data)
		_ = m.Sum(nil)
	}
}
