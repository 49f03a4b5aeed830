// Package keystore is the client side of the module's key group: caching,
// evicting, exporting, committing and erasing keys, plus the staging helpers
// the crypto callback uses when it only holds local key material.
package keystore

import (
	"errors"
	"fmt"

	"github.com/bigbrett/wolfHSM/whsm/comm"
	"github.com/bigbrett/wolfHSM/whsm/keyid"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

var (
	ErrLabelTooLong   = errors.New("keystore: label too long")
	ErrBufferTooSmall = errors.New("keystore: output buffer too small")
	ErrNilClient      = errors.New("keystore: nil comm client")
	ErrStageTooLarge  = errors.New("keystore: key too large to stage")
)

// Client issues key group requests. Every call borrows its own scratch
// buffer from the comm client.
type Client struct {
	c *comm.Client
}

func New(c *comm.Client) *Client {
	return &Client{c: c}
}

// Cache stores key on the module. With id Erased the module picks a fresh
// identifier; the identifier in use is returned either way.
func (k *Client) Cache(flags uint16, label []byte, key []byte, id keyid.KeyID) (keyid.KeyID, error) {
	if k == nil || k.c == nil {
		return keyid.Erased, ErrNilClient
	}
	if len(label) > protocol.NvmLabelLen {
		return keyid.Erased, fmt.Errorf("%w: %d", ErrLabelTooLong, len(label))
	}
	s := k.c.Borrow()
	defer k.c.Release(s)
	buf := s.Bytes()

	req := protocol.KeyCacheReq{
		Flags:   uint32(flags),
		Sz:      uint32(len(key)),
		LabelSz: uint32(len(label)),
		ID:      uint16(id),
	}
	protocol.PutLabel(&req.Label, label)
	n, err := protocol.KeyCacheRequest.Marshal(buf, &req, key)
	if err != nil {
		return keyid.Erased, err
	}
	if n, err = k.c.Exchange(protocol.GroupKey, protocol.KeyActionCache, buf, n); err != nil {
		return keyid.Erased, err
	}
	if err := protocol.Err(buf); err != nil {
		return keyid.Erased, err
	}
	var res protocol.KeyCacheRes
	if err := protocol.KeyCacheResponse.Unmarshal(buf[:n], &res); err != nil {
		return keyid.Erased, err
	}
	k.c.Logger().Debug("key cached", "key_id", keyid.KeyID(res.ID), "len", len(key))
	return keyid.KeyID(res.ID), nil
}

// Evict drops a cached key. Committed copies survive.
func (k *Client) Evict(id keyid.KeyID) error {
	return k.idOnly(protocol.KeyActionEvict, protocol.KeyEvictRequest, protocol.KeyEvictResponse, id)
}

// Commit persists a cached key to NVM.
func (k *Client) Commit(id keyid.KeyID) error {
	return k.idOnly(protocol.KeyActionCommit, protocol.KeyCommitRequest, protocol.KeyCommitResponse, id)
}

// Erase removes a key from both cache and NVM.
func (k *Client) Erase(id keyid.KeyID) error {
	return k.idOnly(protocol.KeyActionErase, protocol.KeyEraseRequest, protocol.KeyEraseResponse, id)
}

func (k *Client) idOnly(action uint16, reqL protocol.Layout[protocol.KeyIDReq], resL protocol.Layout[protocol.OkRes], id keyid.KeyID) error {
	if k == nil || k.c == nil {
		return ErrNilClient
	}
	s := k.c.Borrow()
	defer k.c.Release(s)
	buf := s.Bytes()

	req := protocol.KeyIDReq{ID: uint16(id)}
	n, err := reqL.Marshal(buf, &req)
	if err != nil {
		return err
	}
	if n, err = k.c.Exchange(protocol.GroupKey, action, buf, n); err != nil {
		return err
	}
	if err := protocol.Err(buf); err != nil {
		return err
	}
	var res protocol.OkRes
	return resL.Unmarshal(buf[:n], &res)
}

// Export copies a key's bytes into out and returns the length and label.
func (k *Client) Export(id keyid.KeyID, out []byte) (int, []byte, error) {
	if k == nil || k.c == nil {
		return 0, nil, ErrNilClient
	}
	s := k.c.Borrow()
	defer k.c.Release(s)
	buf := s.Bytes()

	req := protocol.KeyIDReq{ID: uint16(id)}
	n, err := protocol.KeyExportRequest.Marshal(buf, &req)
	if err != nil {
		return 0, nil, err
	}
	if n, err = k.c.Exchange(protocol.GroupKey, protocol.KeyActionExport, buf, n); err != nil {
		return 0, nil, err
	}
	if err := protocol.Err(buf); err != nil {
		return 0, nil, err
	}
	var res protocol.KeyExportRes
	var key []byte
	if err := protocol.KeyExportResponse.Unmarshal(buf[:n], &res, &key); err != nil {
		return 0, nil, err
	}
	if len(key) > len(out) {
		return 0, nil, fmt.Errorf("%w: need %d, have %d", ErrBufferTooSmall, len(key), len(out))
	}
	copy(out, key)
	label := append([]byte(nil), trimLabel(res.Label[:])...)
	return len(key), label, nil
}

func trimLabel(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}
