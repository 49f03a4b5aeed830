package cryptocb_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigbrett/wolfHSM/whsm/comm"
	"github.com/bigbrett/wolfHSM/whsm/crypto"
	"github.com/bigbrett/wolfHSM/whsm/cryptocb"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

func TestInvokeArgumentChecks(t *testing.T) {
	e := newEnv(t, 0, 0)
	info := &cryptocb.Info{AlgoType: protocol.AlgoRng, Rng: cryptocb.RngArgs{Out: make([]byte, 4)}}
	assert.ErrorIs(t, cryptocb.Invoke(cryptocb.InvalidDevID, info, e.ctx), cryptocb.ErrBadFuncArg)
	assert.ErrorIs(t, cryptocb.Invoke(devID, nil, e.ctx), cryptocb.ErrBadFuncArg)
	assert.ErrorIs(t, cryptocb.Invoke(devID, info, nil), cryptocb.ErrBadFuncArg)
	assert.Empty(t, e.rec.kinds)
}

func TestUnhandledOperationsAreUnavailable(t *testing.T) {
	e := newEnv(t, 0, 0)
	tests := []struct {
		name string
		info cryptocb.Info
	}{
		{"hash", cryptocb.Info{AlgoType: protocol.AlgoHash}},
		{"hmac", cryptocb.Info{AlgoType: protocol.AlgoHmac}},
		{"dh", cryptocb.Info{AlgoType: protocol.AlgoPk, Pk: cryptocb.PkInfo{Type: protocol.PkDh}}},
		{"ed25519", cryptocb.Info{AlgoType: protocol.AlgoPk, Pk: cryptocb.PkInfo{Type: protocol.PkEd25519Sign}}},
		{"aes-ctr", cryptocb.Info{AlgoType: protocol.AlgoCipher, Cipher: cryptocb.CipherInfo{Type: protocol.CipherAesCtr}}},
		{"cmac-none", cryptocb.Info{AlgoType: protocol.AlgoCmac, Cmac: cryptocb.CmacArgs{Type: protocol.CmacNone}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.invoke(&tt.info)
			require.ErrorIs(t, err, cryptocb.ErrUnavailable)
			require.Equal(t, protocol.CryptoUnavailable, cryptocb.Code(err))
		})
	}
	assert.Empty(t, e.rec.kinds)
}

func TestCode(t *testing.T) {
	assert.Equal(t, int32(0), cryptocb.Code(nil))
	assert.Equal(t, protocol.CryptoBadFuncArg, cryptocb.Code(cryptocb.ErrBadFuncArg))
	assert.Equal(t, protocol.StatusNotFound, cryptocb.Code(protocol.RemoteError(protocol.StatusNotFound)))
	assert.Equal(t, protocol.StatusAborted, cryptocb.Code(comm.ErrClosed))
	assert.Equal(t, protocol.StatusAborted, cryptocb.Code(errors.New("other")))
}

func TestTransportFailureIsNotUnavailable(t *testing.T) {
	dead := &deadTransport{}
	c, err := comm.NewClient(dead, comm.Options{})
	require.NoError(t, err)
	ctx := cryptocb.NewContext(c)

	err = cryptocb.Invoke(devID, &cryptocb.Info{AlgoType: protocol.AlgoRng, Rng: cryptocb.RngArgs{Out: make([]byte, 8)}}, ctx)
	require.ErrorIs(t, err, errLinkDown)
	require.NotErrorIs(t, err, cryptocb.ErrUnavailable)
	require.Equal(t, protocol.StatusAborted, cryptocb.Code(err))
}

func TestRngChunksByMTU(t *testing.T) {
	const mtu = 128
	e := newEnv(t, mtu, 2)
	out := make([]byte, 1000)
	require.NoError(t, e.invoke(&cryptocb.Info{AlgoType: protocol.AlgoRng, Rng: cryptocb.RngArgs{Out: out}}))

	perChunk := mtu - protocol.RngResponse.Size(&protocol.SizeRes{})
	want := (len(out) + perChunk - 1) / perChunk
	require.Len(t, e.rec.kinds, want)
	for _, k := range e.rec.kinds {
		require.Equal(t, kindRng, k)
	}
	require.False(t, bytes.Equal(out, make([]byte, len(out))))
}

func TestRngEmpty(t *testing.T) {
	e := newEnv(t, 0, 0)
	require.NoError(t, e.invoke(&cryptocb.Info{AlgoType: protocol.AlgoRng}))
	require.Empty(t, e.rec.kinds)
}

func cmacInfo(a cryptocb.CmacArgs) *cryptocb.Info {
	a.Type = protocol.CmacAes
	return &cryptocb.Info{AlgoType: protocol.AlgoCmac, Cmac: a}
}

func expectedCmac(t *testing.T, key, msg []byte) []byte {
	t.Helper()
	mac, err := crypto.NewCMAC(key)
	require.NoError(t, err)
	mac.Write(msg)
	return mac.Sum(nil)
}

func TestCmacOneShot(t *testing.T) {
	e := newEnv(t, 0, 0)
	key := bytes.Repeat([]byte{0x2b}, 16)
	msg := []byte("one shot cmac over the link")

	out := make([]byte, 16)
	var n int
	obj := &cryptocb.Cmac{}
	require.NoError(t, e.invoke(cmacInfo(cryptocb.CmacArgs{Cmac: obj, In: msg, Key: key, Out: out, OutLen: &n})))
	require.Equal(t, 16, n)
	require.Equal(t, expectedCmac(t, key, msg), out)
	require.False(t, obj.DevCtx.IsRemote())
	require.Zero(t, e.srv.Keys().Cached())
}

func TestCmacStreaming(t *testing.T) {
	e := newEnv(t, 0, 0)
	key := bytes.Repeat([]byte{0x7e}, 16)
	msg := bytes.Repeat([]byte("stream "), 20)

	obj := &cryptocb.Cmac{}
	require.NoError(t, e.invoke(cmacInfo(cryptocb.CmacArgs{Cmac: obj, Key: key, In: msg[:5]})))
	require.True(t, obj.DevCtx.IsRemote())
	require.NoError(t, e.invoke(cmacInfo(cryptocb.CmacArgs{Cmac: obj, In: msg[5:77]})))

	out := make([]byte, 16)
	require.NoError(t, e.invoke(cmacInfo(cryptocb.CmacArgs{Cmac: obj, In: msg[77:], Out: out})))
	require.Equal(t, expectedCmac(t, key, msg), out)
}

func TestCmacProbeSkipsTransport(t *testing.T) {
	dead := &deadTransport{}
	c, err := comm.NewClient(dead, comm.Options{})
	require.NoError(t, err)
	ctx := cryptocb.NewContext(c)

	require.NoError(t, cryptocb.Invoke(devID, cmacInfo(cryptocb.CmacArgs{Cmac: &cryptocb.Cmac{}}), ctx))
	require.Zero(t, dead.sends)
}

func TestCmacTooLarge(t *testing.T) {
	e := newEnv(t, 128, 0)
	err := e.invoke(cmacInfo(cryptocb.CmacArgs{In: make([]byte, 200), Key: make([]byte, 16), Out: make([]byte, 16)}))
	require.ErrorIs(t, err, cryptocb.ErrUnavailable)
	require.Empty(t, e.rec.kinds)
}

func TestSubmitCmacPolls(t *testing.T) {
	e := newEnv(t, 0, 3)
	key := bytes.Repeat([]byte{0x01}, 16)
	msg := []byte("non blocking")
	out := make([]byte, 16)

	p, err := cryptocb.SubmitCmac(devID, &cryptocb.CmacArgs{Type: protocol.CmacAes, In: msg, Key: key, Out: out}, e.ctx)
	require.NoError(t, err)
	require.False(t, p.Done())

	notReady := 0
	for {
		err = p.Poll()
		if errors.Is(err, comm.ErrNotReady) {
			notReady++
			continue
		}
		break
	}
	require.NoError(t, err)
	require.True(t, p.Done())
	require.GreaterOrEqual(t, notReady, 3)
	require.Equal(t, expectedCmac(t, key, msg), out)
	require.NoError(t, p.Poll())
}

func TestSubmitCmacProbe(t *testing.T) {
	e := newEnv(t, 0, 0)
	p, err := cryptocb.SubmitCmac(devID, &cryptocb.CmacArgs{Type: protocol.CmacAes}, e.ctx)
	require.NoError(t, err)
	require.True(t, p.Done())
	require.NoError(t, p.Poll())
	require.Empty(t, e.rec.kinds)
}

func TestCmacOversizedOutputBuffer(t *testing.T) {
	e := newEnv(t, 0, 0)
	key := bytes.Repeat([]byte{0x2b}, 16)
	msg := []byte("caller output larger than a packet")

	out := make([]byte, 2000)
	var n int
	require.NoError(t, e.invoke(cmacInfo(cryptocb.CmacArgs{Cmac: &cryptocb.Cmac{}, In: msg, Key: key, Out: out, OutLen: &n})))
	require.Equal(t, 16, n)
	require.Equal(t, expectedCmac(t, key, msg), out[:n])

	kindCmac := protocol.MakeKind(protocol.GroupCrypto, uint16(protocol.AlgoCmac))
	require.Equal(t, []protocol.Kind{kindCmac}, e.rec.kinds)
	req := protocol.CmacReq{InSz: uint32(len(msg)), KeySz: 16}
	require.Equal(t, []int{protocol.CmacRequest.Size(&req)}, e.rec.lens)
}

func TestCmacProbeWithoutType(t *testing.T) {
	dead := &deadTransport{}
	c, err := comm.NewClient(dead, comm.Options{})
	require.NoError(t, err)
	ctx := cryptocb.NewContext(c)

	info := &cryptocb.Info{AlgoType: protocol.AlgoCmac, Cmac: cryptocb.CmacArgs{Cmac: &cryptocb.Cmac{}}}
	require.NoError(t, cryptocb.Invoke(devID, info, ctx))

	p, err := cryptocb.SubmitCmac(devID, &cryptocb.CmacArgs{}, ctx)
	require.NoError(t, err)
	require.True(t, p.Done())
	require.Zero(t, dead.sends)
}
