package protocol

import (
	"encoding/binary"
	"fmt"
)

// Status codes reported by a security module in the packet stub.
const (
	StatusOK         int32 = 0
	StatusBadArgs    int32 = -2000
	StatusNotReady   int32 = -2001
	StatusAborted    int32 = -2002
	StatusCancel     int32 = -2003
	StatusBufferSize int32 = -2006
	StatusNoHandler  int32 = -2007
	StatusNotImpl    int32 = -2008
	StatusAccess     int32 = -2101
	StatusNotFound   int32 = -2104
	StatusNoSpace    int32 = -2105
)

// Status codes of the crypto library both sides link against. A module
// reports them verbatim when a primitive fails, and the callback uses the
// same vocabulary for its own results.
const (
	CryptoMemory        int32 = -125
	CryptoRsaBuffer     int32 = -131
	CryptoBuffer        int32 = -132
	CryptoBadFuncArg    int32 = -173
	CryptoAesGcmAuth    int32 = -180
	CryptoEccPrivKey    int32 = -216
	CryptoRsaOutOfRange int32 = -229
	CryptoUnavailable   int32 = -271
	CryptoBadLength     int32 = -279
)

// RemoteError is a non-zero status returned by the module. The code is kept
// verbatim so callers can pass it through unchanged.
type RemoteError int32

func (e RemoteError) Code() int32 { return int32(e) }

func (e RemoteError) Error() string {
	return fmt.Sprintf("protocol: remote status %d (%s)", int32(e), statusText(int32(e)))
}

func statusText(rc int32) string {
	switch rc {
	case StatusOK:
		return "ok"
	case StatusBadArgs:
		return "bad arguments"
	case StatusNotReady:
		return "not ready"
	case StatusAborted:
		return "aborted"
	case StatusCancel:
		return "canceled"
	case StatusBufferSize:
		return "buffer size"
	case StatusNoHandler:
		return "no handler"
	case StatusNotImpl:
		return "not implemented"
	case StatusAccess:
		return "access denied"
	case StatusNotFound:
		return "not found"
	case StatusNoSpace:
		return "no space"
	default:
		return "module defined"
	}
}

// StubSize is the size of the header shared by every packet: a 32-bit status
// followed by 32 reserved bits.
const StubSize = 8

// Status reads the status code from a packet stub.
func Status(pkt []byte) int32 {
	if len(pkt) < StubSize {
		return StatusBufferSize
	}
	return int32(binary.NativeEndian.Uint32(pkt[0:4]))
}

// SetStatus writes rc into the stub and clears the reserved word.
func SetStatus(pkt []byte, rc int32) {
	binary.NativeEndian.PutUint32(pkt[0:4], uint32(rc))
	binary.NativeEndian.PutUint32(pkt[4:8], 0)
}

// Err converts the stub status into an error, nil for StatusOK.
func Err(pkt []byte) error {
	if rc := Status(pkt); rc != StatusOK {
		return RemoteError(rc)
	}
	return nil
}
