// Package module is a reference security module. It serves the same packet
// layouts the client marshals, backed by Go's crypto packages and an
// in-memory key store. Tests, examples and the serve command run against it.
package module

import (
	"crypto/rand"
	"errors"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"sync"

	"github.com/bigbrett/wolfHSM/whsm/keyid"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

var ErrResponseBuffer = errors.New("module: response buffer smaller than stub")

type Options struct {
	// MTU bounds responses. Zero means protocol.DefaultDataLen.
	MTU int

	ServerID uint32

	// CacheSlots bounds the volatile key cache. Zero means 16.
	CacheSlots int

	// Rand feeds key generation and the RNG. Nil means crypto/rand.
	Rand io.Reader

	Logger *slog.Logger
}

// Server handles one client's requests. Handle is safe for concurrent use
// but the server keeps a single client id, set by the last comm init.
type Server struct {
	mu       sync.Mutex
	opts     Options
	keys     *KeyCache
	macs     map[keyid.KeyID]hash.Hash
	clientID uint8
	log      *slog.Logger
}

func New(opts Options) *Server {
	if opts.MTU == 0 {
		opts.MTU = protocol.DefaultDataLen
	}
	if opts.CacheSlots == 0 {
		opts.CacheSlots = 16
	}
	if opts.Rand == nil {
		opts.Rand = rand.Reader
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		opts:     opts,
		keys:     NewKeyCache(opts.CacheSlots, opts.MTU),
		macs:     map[keyid.KeyID]hash.Hash{},
		clientID: 1,
		log:      logger,
	}
}

// Keys exposes the key store, mainly for inspection in tests.
func (s *Server) Keys() *KeyCache { return s.keys }

// statusError carries a module status out of a handler.
type statusError int32

func (e statusError) Error() string { return fmt.Sprintf("module: status %d", int32(e)) }

func fail(rc int32) error { return statusError(rc) }

func statusOf(err error) int32 {
	var se statusError
	switch {
	case errors.As(err, &se):
		return int32(se)
	case errors.Is(err, ErrNotFound):
		return protocol.StatusNotFound
	case errors.Is(err, ErrNoSpace), errors.Is(err, ErrTooBig):
		return protocol.StatusNoSpace
	case errors.Is(err, ErrAccess):
		return protocol.StatusAccess
	case errors.Is(err, protocol.ErrTooLarge):
		return protocol.StatusBufferSize
	default:
		return protocol.StatusBadArgs
	}
}

// Handle implements comm.Handler.
func (s *Server) Handle(kind protocol.Kind, req []byte, resp []byte) (int, error) {
	if len(resp) < protocol.StubSize {
		return 0, ErrResponseBuffer
	}
	if len(resp) > s.opts.MTU {
		resp = resp[:s.opts.MTU]
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	var err error
	switch kind.Group() {
	case protocol.GroupComm:
		n, err = s.handleComm(kind.Action(), req, resp)
	case protocol.GroupKey:
		n, err = s.handleKey(kind.Action(), req, resp)
	case protocol.GroupCrypto:
		n, err = s.handleCrypto(protocol.AlgoType(kind.Action()), req, resp)
	default:
		err = fail(protocol.StatusNoHandler)
	}
	if err != nil {
		rc := statusOf(err)
		s.log.Warn("request failed", "kind", kind, "status", rc, "err", err)
		clear(resp[:protocol.StubSize])
		protocol.SetStatus(resp, rc)
		return protocol.StubSize, nil
	}
	s.log.Debug("request", "kind", kind, "req_len", len(req), "resp_len", n)
	return n, nil
}

func (s *Server) handleComm(action uint16, req, resp []byte) (int, error) {
	switch action {
	case protocol.CommActionInit:
		var m protocol.CommInitReq
		if err := protocol.CommInitRequest.Unmarshal(req, &m); err != nil {
			return 0, err
		}
		if m.ClientID == 0 || m.ClientID > 0x0F {
			return 0, fail(protocol.StatusBadArgs)
		}
		s.clientID = uint8(m.ClientID)
		res := protocol.CommInitRes{ClientID: m.ClientID, ServerID: s.opts.ServerID}
		return protocol.CommInitResponse.Marshal(resp, &res)
	case protocol.CommActionEcho:
		var m protocol.CommEcho
		var data []byte
		if err := protocol.CommEchoRequest.Unmarshal(req, &m, &data); err != nil {
			return 0, err
		}
		return protocol.CommEchoResponse.Marshal(resp, &m, data)
	default:
		return 0, fail(protocol.StatusNoHandler)
	}
}

// serverID maps a client key identifier onto this server's key space.
func (s *Server) serverID(clientKey uint16) keyid.KeyID {
	return keyid.TranslateFromClient(keyid.TypeCrypto, s.clientID, keyid.KeyID(clientKey))
}

// loadKey reads a key a request refers to.
func (s *Server) loadKey(clientKey uint16) ([]byte, error) {
	if keyid.KeyID(clientKey).IsErased() {
		return nil, fail(protocol.StatusBadArgs)
	}
	_, data, err := s.keys.Get(s.serverID(clientKey))
	return data, err
}

// storeKey caches a generated key under a fresh identifier.
func (s *Server) storeKey(flags uint16, label [protocol.NvmLabelLen]byte, data []byte) (keyid.KeyID, error) {
	id, err := s.keys.FreshID(keyid.TypeCrypto, s.clientID)
	if err != nil {
		return keyid.Erased, err
	}
	meta := protocol.NvmMetadata{Flags: flags, Label: label}
	if err := s.keys.Put(id, meta, data); err != nil {
		return keyid.Erased, err
	}
	return id, nil
}
