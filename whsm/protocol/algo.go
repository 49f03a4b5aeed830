package protocol

// AlgoType is the algorithm class of a crypto operation. It doubles as the
// action of a GroupCrypto message.
type AlgoType uint16

const (
	AlgoNone   AlgoType = 0
	AlgoHash   AlgoType = 1
	AlgoCipher AlgoType = 2
	AlgoPk     AlgoType = 3
	AlgoRng    AlgoType = 4
	AlgoSeed   AlgoType = 5
	AlgoHmac   AlgoType = 6
	AlgoCmac   AlgoType = 7
)

func (a AlgoType) String() string {
	switch a {
	case AlgoNone:
		return "none"
	case AlgoHash:
		return "hash"
	case AlgoCipher:
		return "cipher"
	case AlgoPk:
		return "pk"
	case AlgoRng:
		return "rng"
	case AlgoSeed:
		return "seed"
	case AlgoHmac:
		return "hmac"
	case AlgoCmac:
		return "cmac"
	default:
		return "unknown"
	}
}

// CipherType selects a symmetric cipher mode.
type CipherType uint32

const (
	CipherNone   CipherType = 0
	CipherAes    CipherType = 1
	CipherAesCbc CipherType = 2
	CipherAesGcm CipherType = 3
	CipherAesCtr CipherType = 4
	CipherAesXts CipherType = 5
	CipherAesCfb CipherType = 6
	CipherAesCcm CipherType = 7
	CipherAesEcb CipherType = 8
)

func (c CipherType) String() string {
	switch c {
	case CipherAesCbc:
		return "aes-cbc"
	case CipherAesGcm:
		return "aes-gcm"
	case CipherAesCtr:
		return "aes-ctr"
	case CipherAesEcb:
		return "aes-ecb"
	default:
		return "cipher"
	}
}

// PkType selects a public-key operation.
type PkType uint32

const (
	PkNone             PkType = 0
	PkRsa              PkType = 1
	PkDh               PkType = 2
	PkEcdh             PkType = 3
	PkEcdsaSign        PkType = 4
	PkEcdsaVerify      PkType = 5
	PkEd25519Sign      PkType = 6
	PkCurve25519       PkType = 7
	PkRsaKeyGen        PkType = 8
	PkEcKeyGen         PkType = 9
	PkRsaCheckPrivKey  PkType = 10
	PkEcCheckPrivKey   PkType = 11
	PkEd448Sign        PkType = 12
	PkCurve448         PkType = 13
	PkEd25519Verify    PkType = 14
	PkEd25519KeyGen    PkType = 15
	PkCurve25519KeyGen PkType = 16
	PkRsaGetSize       PkType = 17
)

func (p PkType) String() string {
	switch p {
	case PkRsa:
		return "rsa"
	case PkEcdh:
		return "ecdh"
	case PkEcdsaSign:
		return "ecdsa-sign"
	case PkEcdsaVerify:
		return "ecdsa-verify"
	case PkCurve25519:
		return "curve25519"
	case PkRsaKeyGen:
		return "rsa-keygen"
	case PkEcKeyGen:
		return "ec-keygen"
	case PkEcCheckPrivKey:
		return "ec-check-priv-key"
	case PkCurve25519KeyGen:
		return "curve25519-keygen"
	case PkRsaGetSize:
		return "rsa-get-size"
	default:
		return "pk"
	}
}

// CmacType selects the block cipher under a CMAC.
type CmacType uint32

const (
	CmacNone CmacType = 0
	CmacAes  CmacType = 1
)

// RsaOp is the raw RSA direction requested by a PkRsa operation.
type RsaOp uint32

const (
	RsaPublicEncrypt  RsaOp = 0
	RsaPublicDecrypt  RsaOp = 1
	RsaPrivateEncrypt RsaOp = 2
	RsaPrivateDecrypt RsaOp = 3
)

// CurveID names an ECC curve on the wire.
type CurveID uint32

const (
	CurveNone CurveID = 0
	CurveP256 CurveID = 7
	CurveP384 CurveID = 15
	CurveP521 CurveID = 16
)

func (c CurveID) String() string {
	switch c {
	case CurveP256:
		return "P-256"
	case CurveP384:
		return "P-384"
	case CurveP521:
		return "P-521"
	default:
		return "unknown"
	}
}

// Curve25519 shared secret byte order.
const (
	EndianLittle uint32 = 0
	EndianBig    uint32 = 1
)

// EccVerifyExportPub asks the module to return the public key it verified
// against.
const EccVerifyExportPub uint32 = 1 << 0

const (
	AesBlockSize      = 16
	Curve25519KeySize = 32
)
