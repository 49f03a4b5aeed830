package module

import (
	"github.com/bigbrett/wolfHSM/whsm/keyid"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

func (s *Server) handleKey(action uint16, req, resp []byte) (int, error) {
	switch action {
	case protocol.KeyActionCache:
		return s.keyCache(req, resp)
	case protocol.KeyActionExport:
		return s.keyExport(req, resp)
	case protocol.KeyActionEvict:
		return s.keyIDOnly(req, resp, protocol.KeyEvictRequest, protocol.KeyEvictResponse, s.dropKey(s.keys.Evict))
	case protocol.KeyActionCommit:
		return s.keyIDOnly(req, resp, protocol.KeyCommitRequest, protocol.KeyCommitResponse, s.keys.Commit)
	case protocol.KeyActionErase:
		return s.keyIDOnly(req, resp, protocol.KeyEraseRequest, protocol.KeyEraseResponse, s.dropKey(s.keys.Erase))
	default:
		return 0, fail(protocol.StatusNoHandler)
	}
}

func (s *Server) keyCache(req, resp []byte) (int, error) {
	var m protocol.KeyCacheReq
	var key []byte
	if err := protocol.KeyCacheRequest.Unmarshal(req, &m, &key); err != nil {
		return 0, err
	}
	if m.LabelSz > protocol.NvmLabelLen || len(key) == 0 {
		return 0, fail(protocol.StatusBadArgs)
	}

	var id keyid.KeyID
	if keyid.KeyID(m.ID).IsErased() {
		fresh, err := s.keys.FreshID(keyid.TypeCrypto, s.clientID)
		if err != nil {
			return 0, err
		}
		id = fresh
	} else {
		id = s.serverID(m.ID)
	}
	meta := protocol.NvmMetadata{Flags: uint16(m.Flags)}
	copy(meta.Label[:], m.Label[:m.LabelSz])
	if err := s.keys.Put(id, meta, key); err != nil {
		return 0, err
	}
	res := protocol.KeyCacheRes{ID: uint16(keyid.ToClient(id))}
	return protocol.KeyCacheResponse.Marshal(resp, &res)
}

func (s *Server) keyExport(req, resp []byte) (int, error) {
	var m protocol.KeyIDReq
	if err := protocol.KeyExportRequest.Unmarshal(req, &m); err != nil {
		return 0, err
	}
	meta, data, err := s.keys.Get(s.serverID(m.ID))
	if err != nil {
		return 0, err
	}
	if meta.Flags&protocol.NvmFlagsNonExportable != 0 {
		return 0, ErrAccess
	}
	res := protocol.KeyExportRes{Len: uint32(len(data)), Label: meta.Label}
	return protocol.KeyExportResponse.Marshal(resp, &res, data)
}

func (s *Server) keyIDOnly(req, resp []byte, reqL protocol.Layout[protocol.KeyIDReq], resL protocol.Layout[protocol.OkRes], op func(keyid.KeyID) error) (int, error) {
	var m protocol.KeyIDReq
	if err := reqL.Unmarshal(req, &m); err != nil {
		return 0, err
	}
	if keyid.KeyID(m.ID).IsErased() {
		return 0, fail(protocol.StatusBadArgs)
	}
	id := s.serverID(m.ID)
	if err := op(id); err != nil {
		return 0, err
	}
	res := protocol.OkRes{Ok: 1}
	return resL.Marshal(resp, &res)
}

// dropKey wraps a removal so any MAC state bound to the key goes with it.
func (s *Server) dropKey(op func(keyid.KeyID) error) func(keyid.KeyID) error {
	return func(id keyid.KeyID) error {
		if err := op(id); err != nil {
			return err
		}
		delete(s.macs, id)
		return nil
	}
}
