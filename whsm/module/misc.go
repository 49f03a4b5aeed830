package module

import (
	"hash"
	"io"

	"github.com/bigbrett/wolfHSM/whsm/crypto"
	"github.com/bigbrett/wolfHSM/whsm/keyid"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

func (s *Server) rng(req, resp []byte) (int, error) {
	var m protocol.RngReq
	if err := protocol.RngRequest.Unmarshal(req, &m); err != nil {
		return 0, err
	}
	res := protocol.SizeRes{Sz: m.Sz}
	if protocol.RngResponse.Size(&res) > len(resp) {
		return 0, fail(protocol.StatusBufferSize)
	}
	out := make([]byte, m.Sz)
	if _, err := io.ReadFull(s.opts.Rand, out); err != nil {
		return 0, fail(protocol.StatusAborted)
	}
	return protocol.RngResponse.Marshal(resp, &res, out)
}

// cmac serves one-shot and streaming AES-CMAC. A request carrying a key but
// no output caches the key and starts a stream under the returned id; later
// requests name that id, and the first one asking for output finishes it.
func (s *Server) cmac(req, resp []byte) (int, error) {
	var m protocol.CmacReq
	var in, key []byte
	if err := protocol.CmacRequest.Unmarshal(req, &m, &in, &key); err != nil {
		return 0, err
	}
	if protocol.CmacType(m.Type) != protocol.CmacAes {
		return 0, fail(protocol.CryptoUnavailable)
	}

	var id keyid.KeyID
	mac, err := s.streamFor(m, key, &id)
	if err != nil {
		return 0, err
	}
	mac.Write(in)

	res := protocol.CmacRes{KeyID: uint16(keyid.ToClient(id))}
	var out []byte
	if m.OutSz > 0 {
		out = mac.Sum(nil)[:min(int(m.OutSz), mac.Size())]
		res.OutSz = uint32(len(out))
		delete(s.macs, id)
	}
	return protocol.CmacResponse.Marshal(resp, &res, out)
}

// streamFor finds or starts the MAC a request continues. id is left erased
// for a one-shot MAC.
func (s *Server) streamFor(m protocol.CmacReq, key []byte, id *keyid.KeyID) (hash.Hash, error) {
	if len(key) > 0 {
		mac, err := crypto.NewCMAC(key)
		if err != nil {
			return nil, fail(protocol.CryptoBadFuncArg)
		}
		if m.OutSz > 0 {
			return mac, nil
		}
		sid, err := s.storeKey(protocol.NvmFlagsNone, [protocol.NvmLabelLen]byte{}, key)
		if err != nil {
			return nil, err
		}
		*id = sid
		s.macs[*id] = mac
		return mac, nil
	}

	if keyid.KeyID(m.KeyID).IsErased() {
		return nil, fail(protocol.CryptoBadFuncArg)
	}
	*id = s.serverID(m.KeyID)
	if mac, ok := s.macs[*id]; ok {
		return mac, nil
	}
	k, err := s.loadKey(m.KeyID)
	if err != nil {
		return nil, err
	}
	mac, err := crypto.NewCMAC(k)
	if err != nil {
		return nil, fail(protocol.CryptoBadFuncArg)
	}
	s.macs[*id] = mac
	return mac, nil
}
