package cryptocb

import "github.com/bigbrett/wolfHSM/whsm/protocol"

type (
	AlgoType   = protocol.AlgoType
	CipherType = protocol.CipherType
	PkType     = protocol.PkType
	CmacType   = protocol.CmacType
	RsaOp      = protocol.RsaOp
	CurveID    = protocol.CurveID
)

// InvalidDevID is the device handle that never routes to a module.
const InvalidDevID = -2

// Info describes one operation. AlgoType selects the active member; within
// it the sub-type selects the active arguments. Buffers are caller owned.
type Info struct {
	AlgoType AlgoType
	Cipher   CipherInfo
	Pk       PkInfo
	Rng      RngArgs
	Cmac     CmacArgs
}

type CipherInfo struct {
	Type   CipherType
	Enc    bool
	AesCbc AesCbcArgs
	AesGcm AesGcmArgs
}

// AesCbcArgs processes In into Out, which must be at least as long.
type AesCbcArgs struct {
	Aes *Aes
	Out []byte
	In  []byte
}

// AesGcmArgs: on encrypt AuthTag receives the tag, sized to the tag length
// wanted; on decrypt it holds the tag to check.
type AesGcmArgs struct {
	Aes     *Aes
	Out     []byte
	In      []byte
	Iv      []byte
	AuthIn  []byte
	AuthTag []byte
}

type PkInfo struct {
	Type             PkType
	Rsa              RsaArgs
	RsaKeyGen        RsaKeyGenArgs
	RsaGetSize       RsaGetSizeArgs
	EcKeyGen         EcKeyGenArgs
	Ecdh             EcdhArgs
	EccSign          EccSignArgs
	EccVerify        EccVerifyArgs
	EccCheck         EccCheckArgs
	Curve25519KeyGen Curve25519KeyGenArgs
	Curve25519       Curve25519Args
}

// RsaArgs is a raw RSA operation. OutLen receives the bytes written.
type RsaArgs struct {
	Key    *RsaKey
	Op     RsaOp
	In     []byte
	Out    []byte
	OutLen *int
}

// RsaKeyGenArgs: Size is in bits.
type RsaKeyGenArgs struct {
	Key  *RsaKey
	Size int
	E    int
}

type RsaGetSizeArgs struct {
	Key     *RsaKey
	KeySize *int
}

// EcKeyGenArgs: Size is the field size in bytes.
type EcKeyGenArgs struct {
	Key   *EccKey
	Size  int
	Curve CurveID
}

type EcdhArgs struct {
	Private *EccKey
	Public  *EccKey
	Out     []byte
	OutLen  *int
}

// EccSignArgs signs the hash In. Out receives an ASN.1 signature.
type EccSignArgs struct {
	Key    *EccKey
	In     []byte
	Out    []byte
	OutLen *int
}

type EccVerifyArgs struct {
	Key  *EccKey
	Sig  []byte
	Hash []byte
	Res  *bool
}

type EccCheckArgs struct {
	Key *EccKey
}

type Curve25519KeyGenArgs struct {
	Key  *Curve25519Key
	Size int
}

type Curve25519Args struct {
	Private *Curve25519Key
	Public  *Curve25519Key
	Out     []byte
	OutLen  *int
	Endian  uint32
}

// RngArgs fills Out with random bytes.
type RngArgs struct {
	Out []byte
}

// CmacArgs follows the streaming convention: Key starts a MAC, In feeds it
// and Out finishes it; any combination may be given in one call. With none
// of the three the call is an initialization probe and succeeds locally.
type CmacArgs struct {
	Cmac   *Cmac
	Type   CmacType
	In     []byte
	Key    []byte
	Out    []byte
	OutLen *int
}
