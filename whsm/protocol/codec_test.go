package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := Frame{Kind: MakeKind(GroupCrypto, uint16(AlgoRng)), Seq: 7, Payload: []byte("ok")}
	if err := WriteFrame(&buf, in); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	out, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if out.Kind != in.Kind || out.Seq != in.Seq {
		t.Fatalf("header mismatch: %+v", out)
	}
	if !bytes.Equal(out.Payload, in.Payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestReadFrameBackToBack(t *testing.T) {
	var buf bytes.Buffer
	for i := uint16(0); i < 3; i++ {
		if err := WriteFrame(&buf, Frame{Kind: MakeKind(GroupKey, KeyActionEvict), Seq: i, Payload: []byte{byte(i)}}); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	for i := uint16(0); i < 3; i++ {
		f, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame %d: %v", i, err)
		}
		if f.Seq != i || f.Payload[0] != byte(i) {
			t.Fatalf("frame %d out of order", i)
		}
	}
}

func TestDecodeFrame(t *testing.T) {
	b, err := AppendFrame(nil, Frame{Kind: MakeKind(GroupComm, CommActionEcho), Flags: FlagCompressed, Payload: []byte("abc")})
	if err != nil {
		t.Fatalf("AppendFrame: %v", err)
	}
	f, err := DecodeFrame(b)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if f.Kind.Group() != GroupComm || f.Kind.Action() != CommActionEcho || f.Flags != FlagCompressed {
		t.Fatalf("unexpected frame %+v", f)
	}

	if _, err := DecodeFrame(b[:len(b)-1]); !errors.Is(err, ErrShortFrame) {
		t.Fatalf("expected ErrShortFrame, got %v", err)
	}
	b[0] = 0
	if _, err := DecodeFrame(b); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}

func TestWriteFrameTooLarge(t *testing.T) {
	err := WriteFrame(&bytes.Buffer{}, Frame{Payload: make([]byte, MaxFramePayload+1)})
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestKind(t *testing.T) {
	k := MakeKind(GroupCrypto, uint16(AlgoCmac))
	if uint16(k) != 0x0407 {
		t.Fatalf("kind = %#04x", uint16(k))
	}
	if k.String() != "CRYPTO/7" {
		t.Fatalf("String = %q", k.String())
	}
}
