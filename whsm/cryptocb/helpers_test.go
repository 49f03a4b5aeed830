package cryptocb_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bigbrett/wolfHSM/whsm/comm"
	"github.com/bigbrett/wolfHSM/whsm/comm/mem"
	"github.com/bigbrett/wolfHSM/whsm/cryptocb"
	"github.com/bigbrett/wolfHSM/whsm/module"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

const devID = 7

// recorder notes every request that crosses the transport.
type recorder struct {
	comm.Transport
	kinds []protocol.Kind
	lens  []int
}

func (r *recorder) Send(h comm.Header, pkt []byte) error {
	r.kinds = append(r.kinds, h.Kind)
	r.lens = append(r.lens, len(pkt))
	return r.Transport.Send(h, pkt)
}

func (r *recorder) reset() {
	r.kinds = r.kinds[:0]
	r.lens = r.lens[:0]
}

var errLinkDown = errors.New("link down")

type deadTransport struct{ sends int }

func (d *deadTransport) Send(comm.Header, []byte) error { d.sends++; return errLinkDown }

func (d *deadTransport) Recv([]byte) (comm.Header, int, error) { return comm.Header{}, 0, errLinkDown }

func (d *deadTransport) Close() error { return nil }

type env struct {
	srv *module.Server
	rec *recorder
	ctx *cryptocb.Context
}

func newEnv(t *testing.T, mtu, notReady int) *env {
	t.Helper()
	srv := module.New(module.Options{MTU: mtu})
	rec := &recorder{Transport: mem.New(srv, mem.Options{MTU: mtu, NotReadyPolls: notReady})}
	c, err := comm.NewClient(rec, comm.Options{MTU: mtu})
	require.NoError(t, err)
	_, err = c.Init()
	require.NoError(t, err)
	rec.reset()
	return &env{srv: srv, rec: rec, ctx: cryptocb.NewContext(c)}
}

func (e *env) invoke(info *cryptocb.Info) error {
	return cryptocb.Invoke(devID, info, e.ctx)
}

var (
	kindKeyCache = protocol.MakeKind(protocol.GroupKey, protocol.KeyActionCache)
	kindKeyEvict = protocol.MakeKind(protocol.GroupKey, protocol.KeyActionEvict)
	kindPk       = protocol.MakeKind(protocol.GroupCrypto, uint16(protocol.AlgoPk))
	kindCipher   = protocol.MakeKind(protocol.GroupCrypto, uint16(protocol.AlgoCipher))
	kindRng      = protocol.MakeKind(protocol.GroupCrypto, uint16(protocol.AlgoRng))
)
