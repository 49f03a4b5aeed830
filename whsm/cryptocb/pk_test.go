package cryptocb_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bigbrett/wolfHSM/whsm/crypto"
	"github.com/bigbrett/wolfHSM/whsm/cryptocb"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

func rsaInfo(k *cryptocb.RsaKey, op protocol.RsaOp, in, out []byte, outLen *int) *cryptocb.Info {
	return &cryptocb.Info{
		AlgoType: protocol.AlgoPk,
		Pk: cryptocb.PkInfo{
			Type: protocol.PkRsa,
			Rsa:  cryptocb.RsaArgs{Key: k, Op: op, In: in, Out: out, OutLen: outLen},
		},
	}
}

func TestRsaKeyGenAndRawOps(t *testing.T) {
	e := newEnv(t, 0, 0)
	k := &cryptocb.RsaKey{}
	require.NoError(t, e.invoke(&cryptocb.Info{
		AlgoType: protocol.AlgoPk,
		Pk: cryptocb.PkInfo{
			Type:      protocol.PkRsaKeyGen,
			RsaKeyGen: cryptocb.RsaKeyGenArgs{Key: k, Size: 2048, E: 65537},
		},
	}))
	require.True(t, k.DevCtx.IsRemote())
	require.NotNil(t, k.Priv)
	require.Equal(t, 2048, k.Priv.N.BitLen())

	var size int
	require.NoError(t, e.invoke(&cryptocb.Info{
		AlgoType: protocol.AlgoPk,
		Pk:       cryptocb.PkInfo{Type: protocol.PkRsaGetSize, RsaGetSize: cryptocb.RsaGetSizeArgs{Key: k, KeySize: &size}},
	}))
	require.Equal(t, 256, size)

	m := big.NewInt(0x1234567)
	in := m.FillBytes(make([]byte, 256))
	ct := make([]byte, 256)
	var n int
	require.NoError(t, e.invoke(rsaInfo(k, protocol.RsaPublicEncrypt, in, ct, &n)))
	require.Equal(t, 256, n)
	want := new(big.Int).Exp(m, big.NewInt(int64(k.Priv.E)), k.Priv.N)
	require.Equal(t, want.FillBytes(make([]byte, 256)), ct)

	pt := make([]byte, 256)
	require.NoError(t, e.invoke(rsaInfo(k, protocol.RsaPrivateDecrypt, ct, pt, &n)))
	require.Equal(t, in, pt)
}

func TestRsaLocalKeyIsStagedAndEvicted(t *testing.T) {
	e := newEnv(t, 0, 0)
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	k := &cryptocb.RsaKey{Priv: priv}

	m := big.NewInt(42)
	c := new(big.Int).Exp(m, big.NewInt(int64(priv.E)), priv.N)
	out := make([]byte, 128)
	require.NoError(t, e.invoke(rsaInfo(k, protocol.RsaPrivateDecrypt, c.FillBytes(make([]byte, 128)), out, nil)))
	require.Equal(t, m.FillBytes(make([]byte, 128)), out)

	require.Equal(t, []protocol.Kind{kindKeyCache, kindPk, kindKeyEvict}, e.rec.kinds)
	require.Zero(t, e.srv.Keys().Cached())
	require.False(t, k.DevCtx.IsRemote())
}

func TestRsaStagedKeyEvictedOnFailure(t *testing.T) {
	e := newEnv(t, 0, 0)
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	k := &cryptocb.RsaKey{Priv: priv}

	tooBig := make([]byte, 128)
	for i := range tooBig {
		tooBig[i] = 0xFF
	}
	err = e.invoke(rsaInfo(k, protocol.RsaPrivateDecrypt, tooBig, make([]byte, 128), nil))
	require.Error(t, err)
	require.Equal(t, protocol.CryptoRsaOutOfRange, cryptocb.Code(err))
	require.Equal(t, []protocol.Kind{kindKeyCache, kindPk, kindKeyEvict}, e.rec.kinds)
	require.Zero(t, e.srv.Keys().Cached())

	err = e.invoke(rsaInfo(k, protocol.RsaPublicEncrypt, []byte{1}, make([]byte, 64), nil))
	require.Equal(t, protocol.CryptoRsaBuffer, cryptocb.Code(err))
	require.Zero(t, e.srv.Keys().Cached())
}

func TestRsaTooLargeNeverTouchesTransport(t *testing.T) {
	e := newEnv(t, 128, 0)
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	err = e.invoke(rsaInfo(&cryptocb.RsaKey{Priv: priv}, protocol.RsaPublicEncrypt, make([]byte, 128), make([]byte, 128), nil))
	require.ErrorIs(t, err, cryptocb.ErrBadFuncArg)
	require.Empty(t, e.rec.kinds)
}

func TestEccKeyGenSignVerifyCheck(t *testing.T) {
	e := newEnv(t, 0, 0)
	k := &cryptocb.EccKey{}
	require.NoError(t, e.invoke(&cryptocb.Info{
		AlgoType: protocol.AlgoPk,
		Pk: cryptocb.PkInfo{
			Type:     protocol.PkEcKeyGen,
			EcKeyGen: cryptocb.EcKeyGenArgs{Key: k, Size: 32, Curve: protocol.CurveP256},
		},
	}))
	require.True(t, k.DevCtx.IsRemote())
	require.Equal(t, protocol.CurveP256, k.Curve)

	hash := sha256.Sum256([]byte("sign me"))
	sig := make([]byte, 80)
	var sigLen int
	require.NoError(t, e.invoke(&cryptocb.Info{
		AlgoType: protocol.AlgoPk,
		Pk: cryptocb.PkInfo{
			Type:    protocol.PkEcdsaSign,
			EccSign: cryptocb.EccSignArgs{Key: k, In: hash[:], Out: sig, OutLen: &sigLen},
		},
	}))
	sig = sig[:sigLen]

	var ok bool
	require.NoError(t, e.invoke(&cryptocb.Info{
		AlgoType: protocol.AlgoPk,
		Pk: cryptocb.PkInfo{
			Type:      protocol.PkEcdsaVerify,
			EccVerify: cryptocb.EccVerifyArgs{Key: k, Sig: sig, Hash: hash[:], Res: &ok},
		},
	}))
	require.True(t, ok)
	require.NotNil(t, k.Pub, "verify should return the module public key")
	require.True(t, ecdsa.VerifyASN1(k.Pub, hash[:], sig))

	hash[0] ^= 1
	require.NoError(t, e.invoke(&cryptocb.Info{
		AlgoType: protocol.AlgoPk,
		Pk: cryptocb.PkInfo{
			Type:      protocol.PkEcdsaVerify,
			EccVerify: cryptocb.EccVerifyArgs{Key: k, Sig: sig, Hash: hash[:], Res: &ok},
		},
	}))
	require.False(t, ok)

	require.NoError(t, e.invoke(&cryptocb.Info{
		AlgoType: protocol.AlgoPk,
		Pk:       cryptocb.PkInfo{Type: protocol.PkEcCheckPrivKey, EccCheck: cryptocb.EccCheckArgs{Key: k}},
	}))

	sig = make([]byte, 8)
	err := e.invoke(&cryptocb.Info{
		AlgoType: protocol.AlgoPk,
		Pk: cryptocb.PkInfo{
			Type:    protocol.PkEcdsaSign,
			EccSign: cryptocb.EccSignArgs{Key: k, In: hash[:], Out: sig},
		},
	})
	require.ErrorIs(t, err, cryptocb.ErrBuffer)
}

func TestEcdhNestedStaging(t *testing.T) {
	e := newEnv(t, 0, 0)
	a, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	b, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	priv := &cryptocb.EccKey{Curve: protocol.CurveP256, Priv: a}
	pub := &cryptocb.EccKey{Curve: protocol.CurveP256, Pub: &b.PublicKey}
	out := make([]byte, 32)
	var n int
	require.NoError(t, e.invoke(&cryptocb.Info{
		AlgoType: protocol.AlgoPk,
		Pk: cryptocb.PkInfo{
			Type: protocol.PkEcdh,
			Ecdh: cryptocb.EcdhArgs{Private: priv, Public: pub, Out: out, OutLen: &n},
		},
	}))
	require.Equal(t, 32, n)

	ea, err := a.ECDH()
	require.NoError(t, err)
	eb, err := b.PublicKey.ECDH()
	require.NoError(t, err)
	want, err := ea.ECDH(eb)
	require.NoError(t, err)
	require.Equal(t, want, out)

	require.Equal(t, []protocol.Kind{kindKeyCache, kindKeyCache, kindPk, kindKeyEvict, kindKeyEvict}, e.rec.kinds)
	require.Zero(t, e.srv.Keys().Cached())
}

func TestEccCheckRejectsPublicKey(t *testing.T) {
	e := newEnv(t, 0, 0)
	b, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	err = e.invoke(&cryptocb.Info{
		AlgoType: protocol.AlgoPk,
		Pk: cryptocb.PkInfo{
			Type:     protocol.PkEcCheckPrivKey,
			EccCheck: cryptocb.EccCheckArgs{Key: &cryptocb.EccKey{Curve: protocol.CurveP256, Pub: &b.PublicKey}},
		},
	})
	require.Equal(t, protocol.CryptoEccPrivKey, cryptocb.Code(err))
	require.Zero(t, e.srv.Keys().Cached())
}

func TestCurve25519(t *testing.T) {
	e := newEnv(t, 0, 0)
	remote := &cryptocb.Curve25519Key{}
	require.NoError(t, e.invoke(&cryptocb.Info{
		AlgoType: protocol.AlgoPk,
		Pk: cryptocb.PkInfo{
			Type:             protocol.PkCurve25519KeyGen,
			Curve25519KeyGen: cryptocb.Curve25519KeyGenArgs{Key: remote, Size: 32},
		},
	}))
	require.True(t, remote.PubSet)
	require.True(t, remote.PrivSet)

	id, _ := remote.DevCtx.Get()
	material := make([]byte, 64)
	n, _, err := e.ctx.Keys.Export(id, material)
	require.NoError(t, err)
	require.Equal(t, 64, n)
	var remotePub [32]byte
	copy(remotePub[:], material[:32])

	kp, err := crypto.GenerateX25519(rand.Reader)
	require.NoError(t, err)
	local, err := cryptocb.NewCurve25519Key(kp.PrivateKey)
	require.NoError(t, err)
	want, err := crypto.ECDH(kp.PrivateKey, remotePub)
	require.NoError(t, err)

	shared := func(priv, pub *cryptocb.Curve25519Key, endian uint32) []byte {
		out := make([]byte, 32)
		var n int
		require.NoError(t, e.invoke(&cryptocb.Info{
			AlgoType: protocol.AlgoPk,
			Pk: cryptocb.PkInfo{
				Type:       protocol.PkCurve25519,
				Curve25519: cryptocb.Curve25519Args{Private: priv, Public: pub, Out: out, OutLen: &n, Endian: endian},
			},
		}))
		return out[:n]
	}

	require.Equal(t, want, shared(remote, cryptocb.NewCurve25519Public(kp.PublicKey), protocol.EndianLittle))
	require.Equal(t, want, shared(local, cryptocb.NewCurve25519Public(remotePub), protocol.EndianLittle))

	reversed := append([]byte(nil), want...)
	crypto.Reverse(reversed)
	require.Equal(t, reversed, shared(local, cryptocb.NewCurve25519Public(remotePub), protocol.EndianBig))
	require.Equal(t, 1, e.srv.Keys().Cached())
}

func TestRsaLocalKeyTooLargeToStage(t *testing.T) {
	e := newEnv(t, 0, 0)
	priv, err := rsa.GenerateKey(rand.Reader, 4096)
	require.NoError(t, err)
	k := &cryptocb.RsaKey{Priv: priv}

	err = e.invoke(rsaInfo(k, protocol.RsaPublicEncrypt, []byte{1}, make([]byte, 512), nil))
	require.ErrorIs(t, err, cryptocb.ErrBadFuncArg)
	require.Equal(t, protocol.CryptoBadFuncArg, cryptocb.Code(err))
	require.Empty(t, e.rec.kinds)
	require.Zero(t, e.srv.Keys().Cached())
}

func TestRsaOversizedOutputBuffer(t *testing.T) {
	e := newEnv(t, 0, 0)
	k := &cryptocb.RsaKey{}
	require.NoError(t, e.invoke(&cryptocb.Info{
		AlgoType: protocol.AlgoPk,
		Pk: cryptocb.PkInfo{
			Type:      protocol.PkRsaKeyGen,
			RsaKeyGen: cryptocb.RsaKeyGenArgs{Key: k, Size: 2048, E: 65537},
		},
	}))
	e.rec.reset()

	in := big.NewInt(99).FillBytes(make([]byte, 256))
	out := make([]byte, 2048)
	var n int
	require.NoError(t, e.invoke(rsaInfo(k, protocol.RsaPublicEncrypt, in, out, &n)))
	require.Equal(t, 256, n)
	want := new(big.Int).Exp(big.NewInt(99), big.NewInt(int64(k.Priv.E)), k.Priv.N)
	require.Equal(t, want.FillBytes(make([]byte, 256)), out[:n])

	require.Equal(t, []protocol.Kind{kindPk}, e.rec.kinds)
	require.Equal(t, []int{protocol.RsaRequest.Size(&protocol.RsaReq{InLen: 256})}, e.rec.lens)
}
