// Package comm is the request/response layer between a client and a
// security module. A Transport moves one opaque packet per direction; the
// Client adds sequencing, the shared MTU, scratch buffers and the polling
// loop.
package comm

import (
	"errors"

	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

var (
	// ErrNotReady means no response is available yet. Poll again.
	ErrNotReady = errors.New("comm: not ready")

	ErrClosed             = errors.New("comm: transport closed")
	ErrNilTransport       = errors.New("comm: nil transport")
	ErrMTU                = errors.New("comm: mtu out of range")
	ErrUnexpectedResponse = errors.New("comm: unexpected response")
	ErrResponseTooLarge   = errors.New("comm: response larger than buffer")
)

// Header travels beside a packet, never inside it.
type Header struct {
	Kind protocol.Kind
	Seq  uint16
}

// Transport moves packets to and from a module. Recv must not block: it
// returns ErrNotReady until a response for the last Send is available.
type Transport interface {
	Send(h Header, pkt []byte) error
	Recv(pkt []byte) (Header, int, error)
	Close() error
}

// Handler serves requests on the module side. It writes the response packet
// into resp and returns its length. Errors are fatal to the exchange; module
// statuses belong in the response stub.
type Handler interface {
	Handle(kind protocol.Kind, req []byte, resp []byte) (int, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(kind protocol.Kind, req []byte, resp []byte) (int, error)

func (f HandlerFunc) Handle(kind protocol.Kind, req []byte, resp []byte) (int, error) {
	return f(kind, req, resp)
}
