package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrTooLarge       = errors.New("protocol: packet exceeds mtu")
	ErrShortPacket    = errors.New("protocol: packet shorter than layout")
	ErrLengthMismatch = errors.New("protocol: packet length does not match layout")
	ErrFieldLength    = errors.New("protocol: field length does not match metadata")
	ErrFieldCount     = errors.New("protocol: wrong number of fields")
)

// Field is one variable-length region of a packet. Len derives the region
// size from the fixed metadata, so offsets are never stored anywhere.
type Field[M any] struct {
	Name string
	Len  func(m *M) int
}

// Layout describes one packet variant: the stub, the fixed metadata record M,
// then every Field back to back in declaration order with no padding.
// Marshal and Unmarshal share the same offset walk.
type Layout[M any] struct {
	Name   string
	Fields []Field[M]
}

// Span locates one field inside a packet.
type Span struct {
	Name string
	Off  int
	Len  int
}

// FixedSize is the encoded size of M.
func (l Layout[M]) FixedSize() int {
	var m M
	return binary.Size(&m)
}

// Size returns the total wire size for metadata m.
func (l Layout[M]) Size(m *M) int {
	n := StubSize + l.FixedSize()
	for _, f := range l.Fields {
		n += f.Len(m)
	}
	return n
}

// Spans appends the location of each field for metadata m to dst.
func (l Layout[M]) Spans(dst []Span, m *M) []Span {
	off := StubSize + l.FixedSize()
	for _, f := range l.Fields {
		n := f.Len(m)
		dst = append(dst, Span{Name: f.Name, Off: off, Len: n})
		off += n
	}
	return dst
}

// Marshal writes a zero status stub, m and the field payloads into buf and
// returns the number of bytes used. Payload lengths must agree with m.
func (l Layout[M]) Marshal(buf []byte, m *M, fields ...[]byte) (int, error) {
	if len(fields) != len(l.Fields) {
		return 0, fmt.Errorf("%w: %s wants %d, got %d", ErrFieldCount, l.Name, len(l.Fields), len(fields))
	}
	size := l.Size(m)
	if size > len(buf) {
		return 0, fmt.Errorf("%w: %s needs %d of %d", ErrTooLarge, l.Name, size, len(buf))
	}
	for i, f := range l.Fields {
		if len(fields[i]) != f.Len(m) {
			return 0, fmt.Errorf("%w: %s.%s is %d, metadata says %d", ErrFieldLength, l.Name, f.Name, len(fields[i]), f.Len(m))
		}
	}

	SetStatus(buf, StatusOK)
	off := StubSize
	n, err := binary.Encode(buf[off:], binary.NativeEndian, m)
	if err != nil {
		return 0, err
	}
	off += n
	for _, p := range fields {
		off += copy(buf[off:], p)
	}
	return off, nil
}

// Unmarshal decodes m from pkt and points each non-nil dst at its field,
// aliasing pkt. pkt must be exactly as long as the layout says.
func (l Layout[M]) Unmarshal(pkt []byte, m *M, dst ...*[]byte) error {
	if len(dst) != len(l.Fields) {
		return fmt.Errorf("%w: %s wants %d, got %d", ErrFieldCount, l.Name, len(l.Fields), len(dst))
	}
	fixed := l.FixedSize()
	if len(pkt) < StubSize+fixed {
		return fmt.Errorf("%w: %s needs %d, have %d", ErrShortPacket, l.Name, StubSize+fixed, len(pkt))
	}
	if _, err := binary.Decode(pkt[StubSize:StubSize+fixed], binary.NativeEndian, m); err != nil {
		return err
	}
	off := StubSize + fixed
	for i, f := range l.Fields {
		n := f.Len(m)
		if n < 0 || off+n > len(pkt) {
			return fmt.Errorf("%w: %s.%s", ErrShortPacket, l.Name, f.Name)
		}
		if dst[i] != nil {
			*dst[i] = pkt[off : off+n : off+n]
		}
		off += n
	}
	if off != len(pkt) {
		return fmt.Errorf("%w: %s is %d, layout says %d", ErrLengthMismatch, l.Name, len(pkt), off)
	}
	return nil
}

// Fixed builds a Len func for a field of constant size.
func Fixed[M any](n int) func(*M) int {
	return func(*M) int { return n }
}

// PeekType reads the leading 32-bit sub-type of a crypto request without
// committing to a layout.
func PeekType(pkt []byte) (uint32, error) {
	if len(pkt) < StubSize+4 {
		return 0, ErrShortPacket
	}
	return binary.NativeEndian.Uint32(pkt[StubSize : StubSize+4]), nil
}
