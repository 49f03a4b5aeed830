package quic

import (
	"context"
	"errors"
	"io"
	"log/slog"

	q "github.com/quic-go/quic-go"

	"github.com/bigbrett/wolfHSM/whsm/comm"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

type ServeOptions struct {
	// MTU sizes the response buffer. Zero means protocol.DefaultDataLen.
	MTU int

	// Compress lz4 compresses responses that shrink.
	Compress bool

	Logger *slog.Logger
}

// Serve accepts connections on ln and answers every frame with h until ctx
// is done or the listener fails.
func Serve(ctx context.Context, ln *Listener, h comm.Handler, opts ServeOptions) error {
	if opts.MTU == 0 {
		opts.MTU = protocol.DefaultDataLen
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		opts.Logger.Info("client connected", "remote", conn.RemoteAddr().String())
		go serveConn(ctx, conn, h, opts)
	}
}

func serveConn(ctx context.Context, conn q.Connection, h comm.Handler, opts ServeOptions) {
	defer conn.CloseWithError(0, "")
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		opts.Logger.Debug("accept stream", "err", err)
		return
	}
	defer stream.Close()

	resp := make([]byte, opts.MTU)
	for {
		f, err := protocol.ReadFrame(stream)
		if err == nil {
			f.Payload, err = decodePayload(f)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				opts.Logger.Debug("read frame", "err", err)
			}
			return
		}
		clear(resp)
		n, err := h.Handle(f.Kind, f.Payload, resp)
		if err != nil {
			opts.Logger.Warn("handler failed", "kind", f.Kind, "err", err)
			return
		}
		payload, flags := encodePayload(resp[:n], opts.Compress)
		out := protocol.Frame{Kind: f.Kind, Seq: f.Seq, Flags: flags, Payload: payload}
		if err := protocol.WriteFrame(stream, out); err != nil {
			opts.Logger.Debug("write frame", "err", err)
			return
		}
	}
}
