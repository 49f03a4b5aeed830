package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// Magic marks the start of every comm frame.
	Magic uint16 = 0xAA55

	// FrameHeaderSize is the size of the stream framing header.
	FrameHeaderSize = 12

	// MaxFramePayload limits a single frame payload.
	MaxFramePayload = 64 << 10

	// FlagCompressed marks a payload that was lz4 compressed by the transport.
	FlagCompressed uint16 = 0x0001
)

var (
	ErrFrameTooLarge = errors.New("protocol: frame payload too large")
	ErrBadMagic      = errors.New("protocol: bad frame magic")
	ErrShortFrame    = errors.New("protocol: short frame")
)

// Frame is the comm container used by stream and RPC transports. The payload
// is one packet; Kind and Seq travel in the header.
//
// Format (big endian):
//
//	2 bytes: magic
//	2 bytes: kind (group | action)
//	2 bytes: sequence number
//	2 bytes: flags
//	4 bytes: payload length
//	N bytes: payload
type Frame struct {
	Kind    Kind
	Seq     uint16
	Flags   uint16
	Payload []byte
}

func putHeader(hdr []byte, f Frame) {
	binary.BigEndian.PutUint16(hdr[0:2], Magic)
	binary.BigEndian.PutUint16(hdr[2:4], uint16(f.Kind))
	binary.BigEndian.PutUint16(hdr[4:6], f.Seq)
	binary.BigEndian.PutUint16(hdr[6:8], f.Flags)
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(f.Payload)))
}

func parseHeader(hdr []byte) (Frame, uint32, error) {
	if binary.BigEndian.Uint16(hdr[0:2]) != Magic {
		return Frame{}, 0, ErrBadMagic
	}
	f := Frame{
		Kind:  Kind(binary.BigEndian.Uint16(hdr[2:4])),
		Seq:   binary.BigEndian.Uint16(hdr[4:6]),
		Flags: binary.BigEndian.Uint16(hdr[6:8]),
	}
	n := binary.BigEndian.Uint32(hdr[8:12])
	if n > MaxFramePayload {
		return Frame{}, 0, fmt.Errorf("%w: %d", ErrFrameTooLarge, n)
	}
	return f, n, nil
}

func WriteFrame(w io.Writer, f Frame) error {
	if len(f.Payload) > MaxFramePayload {
		return fmt.Errorf("%w: %d", ErrFrameTooLarge, len(f.Payload))
	}

	bw := bufio.NewWriter(w)
	var hdr [FrameHeaderSize]byte
	putHeader(hdr[:], f)
	if _, err := bw.Write(hdr[:]); err != nil {
		return err
	}
	if len(f.Payload) > 0 {
		if _, err := bw.Write(f.Payload); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadFrame reads exactly one frame. It does not buffer past the frame, so
// successive calls on the same stream are safe.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	f, n, err := parseHeader(hdr[:])
	if err != nil {
		return Frame{}, err
	}
	f.Payload = make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return Frame{}, err
		}
	}
	return f, nil
}

// AppendFrame appends the encoded frame to dst.
func AppendFrame(dst []byte, f Frame) ([]byte, error) {
	if len(f.Payload) > MaxFramePayload {
		return dst, fmt.Errorf("%w: %d", ErrFrameTooLarge, len(f.Payload))
	}
	var hdr [FrameHeaderSize]byte
	putHeader(hdr[:], f)
	dst = append(dst, hdr[:]...)
	return append(dst, f.Payload...), nil
}

// DecodeFrame parses a frame held entirely in b. The payload aliases b.
func DecodeFrame(b []byte) (Frame, error) {
	if len(b) < FrameHeaderSize {
		return Frame{}, ErrShortFrame
	}
	f, n, err := parseHeader(b[:FrameHeaderSize])
	if err != nil {
		return Frame{}, err
	}
	if uint32(len(b)-FrameHeaderSize) != n {
		return Frame{}, fmt.Errorf("%w: header says %d, have %d", ErrShortFrame, n, len(b)-FrameHeaderSize)
	}
	f.Payload = b[FrameHeaderSize:]
	return f, nil
}
