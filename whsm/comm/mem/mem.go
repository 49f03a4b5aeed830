// Package mem is an in-process comm.Transport bound directly to a
// comm.Handler. It is useful for tests, examples and embedding a module in
// the same process.
package mem

import (
	"sync"

	"github.com/bigbrett/wolfHSM/whsm/comm"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

type Options struct {
	// MTU sizes the response buffer. Zero means protocol.DefaultDataLen.
	MTU int

	// NotReadyPolls is how many Recv calls report comm.ErrNotReady before
	// each response is produced.
	NotReadyPolls int
}

// Transport serves each request lazily on the first Recv that is allowed
// to complete.
type Transport struct {
	h    comm.Handler
	opts Options

	mu      sync.Mutex
	hdr     comm.Header
	req     []byte
	resp    []byte
	pending bool
	polls   int
	closed  bool
}

func New(h comm.Handler, opts Options) *Transport {
	if opts.MTU == 0 {
		opts.MTU = protocol.DefaultDataLen
	}
	return &Transport{
		h:    h,
		opts: opts,
		req:  make([]byte, 0, opts.MTU),
		resp: make([]byte, opts.MTU),
	}
}

func (t *Transport) Send(h comm.Header, pkt []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return comm.ErrClosed
	}
	if t.pending {
		return comm.ErrNotReady
	}
	t.hdr = h
	t.req = append(t.req[:0], pkt...)
	t.pending = true
	t.polls = 0
	return nil
}

func (t *Transport) Recv(pkt []byte) (comm.Header, int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return comm.Header{}, 0, comm.ErrClosed
	}
	if !t.pending || t.polls < t.opts.NotReadyPolls {
		t.polls++
		return comm.Header{}, 0, comm.ErrNotReady
	}
	t.pending = false
	clear(t.resp)
	n, err := t.h.Handle(t.hdr.Kind, t.req, t.resp)
	if err != nil {
		return comm.Header{}, 0, err
	}
	if n > len(pkt) {
		return comm.Header{}, 0, comm.ErrResponseTooLarge
	}
	copy(pkt, t.resp[:n])
	return t.hdr, n, nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
