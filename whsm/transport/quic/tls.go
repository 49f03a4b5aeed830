package quic

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"time"
)

const (
	ALPN = "whsm/1"
)

// ErrFingerprint is returned by a pinned dial when the module presents a
// different certificate.
var ErrFingerprint = errors.New("quic: module certificate fingerprint mismatch")

// moduleIdentity is the ephemeral certificate a listening module presents.
// Its SHA-256 fingerprint is what a client pins.
type moduleIdentity struct {
	cert        tls.Certificate
	fingerprint [sha256.Size]byte
}

func newModuleIdentity() (*moduleIdentity, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	tpl := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "whsm module"},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(30 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, &tpl, &tpl, &priv.PublicKey, priv)
	if err != nil {
		return nil, err
	}
	return &moduleIdentity{
		cert:        tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv},
		fingerprint: sha256.Sum256(der),
	}, nil
}

func (m *moduleIdentity) serverConfig() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{m.cert},
		MinVersion:   tls.VersionTLS13,
		NextProtos:   []string{ALPN},
	}
}

// clientTLSConfig accepts any module certificate unless pin is set, in
// which case the leaf must hash to it.
func clientTLSConfig(pin []byte) *tls.Config {
	conf := &tls.Config{
		MinVersion: tls.VersionTLS13,
		NextProtos: []string{ALPN},
		// Module certificates are self-issued; the pin replaces chain checks.
		InsecureSkipVerify: true,
	}
	if len(pin) == 0 {
		return conf
	}
	want := append([]byte(nil), pin...)
	conf.VerifyPeerCertificate = func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return ErrFingerprint
		}
		got := sha256.Sum256(rawCerts[0])
		if !bytes.Equal(got[:], want) {
			return ErrFingerprint
		}
		return nil
	}
	return conf
}
