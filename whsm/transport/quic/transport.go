// Package quic carries comm frames over a single QUIC stream. A client opens
// one stream per connection and the module answers each frame on it in
// order.
package quic

import (
	"context"
	"net"

	q "github.com/quic-go/quic-go"
)

type Listener struct {
	inner *q.Listener
	id    *moduleIdentity
}

func Listen(addr string) (*Listener, error) {
	id, err := newModuleIdentity()
	if err != nil {
		return nil, err
	}
	ln, err := q.ListenAddr(addr, id.serverConfig(), &q.Config{})
	if err != nil {
		return nil, err
	}
	return &Listener{inner: ln, id: id}, nil
}

func (l *Listener) Accept(ctx context.Context) (q.Connection, error) {
	return l.inner.Accept(ctx)
}

// Fingerprint is the SHA-256 of the certificate this listener presents.
// Clients pass it as Options.PinSHA256.
func (l *Listener) Fingerprint() []byte {
	return append([]byte(nil), l.id.fingerprint[:]...)
}

func (l *Listener) Addr() net.Addr { return l.inner.Addr() }

func (l *Listener) AddrString() string {
	if l.inner == nil {
		return ""
	}
	return l.inner.Addr().String()
}

func (l *Listener) Close() error { return l.inner.Close() }

// Dial connects to a module. A non-empty pin must match the module's
// certificate fingerprint.
func Dial(ctx context.Context, addr string, pin []byte) (q.Connection, error) {
	return q.DialAddr(ctx, addr, clientTLSConfig(pin), &q.Config{})
}
