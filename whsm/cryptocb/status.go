package cryptocb

import (
	"errors"
	"fmt"

	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

// Status is a result code in the calling crypto library's vocabulary.
type Status int32

const (
	StatusMemory      = Status(protocol.CryptoMemory)
	StatusBuffer      = Status(protocol.CryptoBuffer)
	StatusBadFuncArg  = Status(protocol.CryptoBadFuncArg)
	StatusBadLength   = Status(protocol.CryptoBadLength)
	StatusUnavailable = Status(protocol.CryptoUnavailable)
)

var (
	ErrBadFuncArg error = StatusBadFuncArg
	ErrBuffer     error = StatusBuffer
	ErrBadLength  error = StatusBadLength

	// ErrUnavailable means the operation is not handled here and the caller
	// should fall back to local computation. It is never a hard failure.
	ErrUnavailable error = StatusUnavailable
)

func (s Status) Error() string {
	switch s {
	case StatusMemory:
		return "cryptocb: out of memory"
	case StatusBuffer:
		return "cryptocb: output buffer too small"
	case StatusBadFuncArg:
		return "cryptocb: bad argument"
	case StatusBadLength:
		return "cryptocb: bad length"
	case StatusUnavailable:
		return "cryptocb: unavailable"
	default:
		return fmt.Sprintf("cryptocb: status %d", int32(s))
	}
}

// Code flattens err into an integer status: zero on success, the module's
// code for a remote failure, and protocol.StatusAborted for transport
// failures so they can never look like ErrUnavailable.
func Code(err error) int32 {
	if err == nil {
		return 0
	}
	var s Status
	if errors.As(err, &s) {
		return int32(s)
	}
	var re protocol.RemoteError
	if errors.As(err, &re) {
		return re.Code()
	}
	return protocol.StatusAborted
}
