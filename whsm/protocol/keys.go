package protocol

import "unsafe"

const (
	// NvmLabelLen is the fixed label size of every stored object.
	NvmLabelLen = 24

	// NvmMetadataLen is the on-wire size of NvmMetadata.
	NvmMetadataLen = 32
)

// NVM object flags.
const (
	NvmFlagsNone           uint16 = 0
	NvmFlagsNonModifiable  uint16 = 1 << 0
	NvmFlagsNonDestroyable uint16 = 1 << 1
	NvmFlagsNonExportable  uint16 = 1 << 2
)

// NvmMetadata describes an object held by the module.
type NvmMetadata struct {
	ID     uint16
	Access uint16
	Flags  uint16
	Len    uint16
	Label  [NvmLabelLen]byte
}

// Fails to compile if NvmMetadata drifts from NvmMetadataLen.
var (
	_ [unsafe.Sizeof(NvmMetadata{}) - NvmMetadataLen]struct{}
	_ [NvmMetadataLen - unsafe.Sizeof(NvmMetadata{})]struct{}
)

// PutLabel copies s into a fixed label, truncating and zero padding.
func PutLabel(dst *[NvmLabelLen]byte, s []byte) int {
	*dst = [NvmLabelLen]byte{}
	return copy(dst[:], s)
}

type KeyCacheReq struct {
	Flags    uint32
	Sz       uint32
	LabelSz  uint32
	ID       uint16
	Reserved uint16
	Label    [NvmLabelLen]byte
}

type KeyCacheRes struct {
	ID       uint16
	Reserved uint16
}

// KeyIDReq is the request shape of evict, export, commit and erase.
type KeyIDReq struct {
	ID       uint16
	Reserved uint16
}

type KeyExportRes struct {
	Len   uint32
	Label [NvmLabelLen]byte
}

var (
	KeyCacheRequest = Layout[KeyCacheReq]{Name: "key-cache request", Fields: []Field[KeyCacheReq]{
		{"key", func(m *KeyCacheReq) int { return int(m.Sz) }},
	}}
	KeyCacheResponse = Layout[KeyCacheRes]{Name: "key-cache response"}

	KeyEvictRequest  = Layout[KeyIDReq]{Name: "key-evict request"}
	KeyEvictResponse = Layout[OkRes]{Name: "key-evict response"}

	KeyExportRequest  = Layout[KeyIDReq]{Name: "key-export request"}
	KeyExportResponse = Layout[KeyExportRes]{Name: "key-export response", Fields: []Field[KeyExportRes]{
		{"key", func(m *KeyExportRes) int { return int(m.Len) }},
	}}

	KeyCommitRequest  = Layout[KeyIDReq]{Name: "key-commit request"}
	KeyCommitResponse = Layout[OkRes]{Name: "key-commit response"}

	KeyEraseRequest  = Layout[KeyIDReq]{Name: "key-erase request"}
	KeyEraseResponse = Layout[OkRes]{Name: "key-erase response"}
)
