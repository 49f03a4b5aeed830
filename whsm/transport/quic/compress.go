package quic

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

var (
	ErrCompressionFailed   = errors.New("quic: compression failed")
	ErrDecompressionFailed = errors.New("quic: decompression failed")
)

var compressorPool = sync.Pool{
	New: func() interface{} {
		w := lz4.NewWriter(nil)
		_ = w.Apply(lz4.CompressionLevelOption(lz4.Fast))
		return w
	},
}

var decompressorPool = sync.Pool{
	New: func() interface{} {
		return lz4.NewReader(nil)
	},
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := compressorPool.Get().(*lz4.Writer)
	defer compressorPool.Put(w)

	w.Reset(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, ErrCompressionFailed
	}
	if err := w.Close(); err != nil {
		return nil, ErrCompressionFailed
	}
	return buf.Bytes(), nil
}

// decompress refuses to inflate past one frame payload.
func decompress(data []byte) ([]byte, error) {
	r := decompressorPool.Get().(*lz4.Reader)
	defer decompressorPool.Put(r)

	r.Reset(bytes.NewReader(data))
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, protocol.MaxFramePayload+1))
	if err != nil || n > protocol.MaxFramePayload {
		return nil, ErrDecompressionFailed
	}
	return buf.Bytes(), nil
}

// encodePayload compresses pkt when asked to and when that makes it smaller.
func encodePayload(pkt []byte, enabled bool) ([]byte, uint16) {
	if !enabled {
		return pkt, 0
	}
	c, err := compress(pkt)
	if err != nil || len(c) >= len(pkt) {
		return pkt, 0
	}
	return c, protocol.FlagCompressed
}

func decodePayload(f protocol.Frame) ([]byte, error) {
	if f.Flags&protocol.FlagCompressed == 0 {
		return f.Payload, nil
	}
	return decompress(f.Payload)
}
