package grpccomm

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/bigbrett/wolfHSM/whsm/comm"
	"github.com/bigbrett/wolfHSM/whsm/module"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

func startServer(t *testing.T, h comm.Handler) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterCommServer(srv, &Server{Handler: h})
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	c, err := Dial("bufnet", DialOptions{Dialer: dialer, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	c.Timeout = 2 * time.Second
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGRPCComm_ModuleRoundTrip(t *testing.T) {
	tr := startServer(t, module.New(module.Options{ServerID: 11}))
	c, err := comm.NewClient(tr, comm.Options{ClientID: 4})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	id, err := c.Init()
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if id != 11 {
		t.Fatalf("server id = %d, want 11", id)
	}

	payload := []byte("hello grpccomm")
	got, err := c.Echo(payload)
	if err != nil {
		t.Fatalf("Echo: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestGRPCComm_OneRequestInFlight(t *testing.T) {
	block := make(chan struct{})
	h := comm.HandlerFunc(func(_ protocol.Kind, req, resp []byte) (int, error) {
		<-block
		return copy(resp, req), nil
	})
	tr := startServer(t, h)

	hdr := comm.Header{Kind: protocol.MakeKind(protocol.GroupComm, protocol.CommActionEcho), Seq: 1}
	if err := tr.Send(hdr, make([]byte, 8)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := tr.Send(hdr, make([]byte, 8)); !errors.Is(err, comm.ErrNotReady) {
		t.Fatalf("second Send: %v, want ErrNotReady", err)
	}
	if _, _, err := tr.Recv(make([]byte, 64)); !errors.Is(err, comm.ErrNotReady) {
		t.Fatalf("Recv before reply: %v, want ErrNotReady", err)
	}
	close(block)

	pkt := make([]byte, 64)
	for {
		got, n, err := tr.Recv(pkt)
		if errors.Is(err, comm.ErrNotReady) {
			time.Sleep(time.Millisecond)
			continue
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if got != hdr || n != 8 {
			t.Fatalf("got %+v/%d, want %+v/8", got, n, hdr)
		}
		return
	}
}

func TestMapRPC(t *testing.T) {
	if err := mapRPC(status.Error(codes.Unavailable, "down")); !errors.Is(err, comm.ErrClosed) {
		t.Fatalf("Unavailable -> %v", err)
	}
	if err := mapRPC(status.Error(codes.ResourceExhausted, "big")); !errors.Is(err, comm.ErrResponseTooLarge) {
		t.Fatalf("ResourceExhausted -> %v", err)
	}
	plain := errors.New("plain")
	if err := mapRPC(plain); err != plain {
		t.Fatalf("non-status error should pass through")
	}
}

func TestDialTimeoutWithoutServer(t *testing.T) {
	errRefused := errors.New("refused")
	dialer := func(context.Context, string) (net.Conn, error) { return nil, errRefused }

	start := time.Now()
	c, err := Dial("nowhere", DialOptions{Dialer: dialer, Timeout: 200 * time.Millisecond})
	if err == nil {
		_ = c.Close()
		t.Fatalf("Dial should fail when the module never answers")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Dial took %v, timeout not applied", elapsed)
	}
}
