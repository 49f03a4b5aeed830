package protocol

// Fixed metadata records for GroupCrypto packets. Every request starts with
// its 32-bit sub-type so a receiver can pick the layout with PeekType. Field
// order keeps every record naturally aligned; TestNoImplicitPadding checks it.

type AesCbcReq struct {
	Type     uint32
	Enc      uint32
	KeyLen   uint32
	Sz       uint32
	KeyID    uint16
	Reserved uint16
}

type AesCbcRes struct {
	Sz uint32
}

type AesGcmReq struct {
	Type      uint32
	Enc       uint32
	KeyLen    uint32
	Sz        uint32
	IvSz      uint32
	AuthInSz  uint32
	AuthTagSz uint32
	KeyID     uint16
	Reserved  uint16
}

type AesGcmRes struct {
	Sz        uint32
	AuthTagSz uint32
}

type RsaKeyGenReq struct {
	Type  uint32
	Size  uint32
	E     uint32
	Flags uint16
	KeyID uint16
	Label [NvmLabelLen]byte
}

type KeyGenRes struct {
	KeyID    uint16
	Reserved uint16
}

type RsaReq struct {
	Type     uint32
	OpType   uint32
	InLen    uint32
	OutLen   uint32
	KeyID    uint16
	Reserved uint16
}

type RsaRes struct {
	OutLen uint32
}

type RsaGetSizeReq struct {
	Type     uint32
	KeyID    uint16
	Reserved uint16
}

type RsaGetSizeRes struct {
	KeySize uint32
}

type EccKeyGenReq struct {
	Type    uint32
	Sz      uint32
	CurveID uint32
	Flags   uint16
	KeyID   uint16
	Label   [NvmLabelLen]byte
}

type EcdhReq struct {
	Type         uint32
	Options      uint32
	CurveID      uint32
	PrivateKeyID uint16
	PublicKeyID  uint16
}

// SizeRes is the response shape shared by variants that return one buffer.
type SizeRes struct {
	Sz uint32
}

type EccSignReq struct {
	Type     uint32
	Options  uint32
	CurveID  uint32
	Sz       uint32
	KeyID    uint16
	Reserved uint16
}

type EccVerifyReq struct {
	Type     uint32
	Options  uint32
	CurveID  uint32
	SigSz    uint32
	HashSz   uint32
	KeyID    uint16
	Reserved uint16
}

type EccVerifyRes struct {
	Res   uint32
	PubSz uint32
}

type EccCheckReq struct {
	Type     uint32
	CurveID  uint32
	KeyID    uint16
	Reserved uint16
}

type OkRes struct {
	Ok uint32
}

type Curve25519KeyGenReq struct {
	Type  uint32
	Sz    uint32
	Flags uint16
	KeyID uint16
	Label [NvmLabelLen]byte
}

type Curve25519Req struct {
	Type         uint32
	Options      uint32
	Endian       uint32
	PrivateKeyID uint16
	PublicKeyID  uint16
}

type RngReq struct {
	Sz uint32
}

type CmacReq struct {
	Type     uint32
	InSz     uint32
	KeySz    uint32
	OutSz    uint32
	KeyID    uint16
	Reserved uint16
}

type CmacRes struct {
	OutSz    uint32
	KeyID    uint16
	Reserved uint16
}

var (
	AesCbcRequest = Layout[AesCbcReq]{Name: "aes-cbc request", Fields: []Field[AesCbcReq]{
		{"key", func(m *AesCbcReq) int { return int(m.KeyLen) }},
		{"iv", Fixed[AesCbcReq](AesBlockSize)},
		{"in", func(m *AesCbcReq) int { return int(m.Sz) }},
	}}
	AesCbcResponse = Layout[AesCbcRes]{Name: "aes-cbc response", Fields: []Field[AesCbcRes]{
		{"out", func(m *AesCbcRes) int { return int(m.Sz) }},
	}}

	// The tag only travels on decrypt requests and encrypt responses.
	AesGcmRequest = Layout[AesGcmReq]{Name: "aes-gcm request", Fields: []Field[AesGcmReq]{
		{"key", func(m *AesGcmReq) int { return int(m.KeyLen) }},
		{"iv", func(m *AesGcmReq) int { return int(m.IvSz) }},
		{"in", func(m *AesGcmReq) int { return int(m.Sz) }},
		{"authIn", func(m *AesGcmReq) int { return int(m.AuthInSz) }},
		{"tag", func(m *AesGcmReq) int {
			if m.Enc != 0 {
				return 0
			}
			return int(m.AuthTagSz)
		}},
	}}
	AesGcmResponse = Layout[AesGcmRes]{Name: "aes-gcm response", Fields: []Field[AesGcmRes]{
		{"out", func(m *AesGcmRes) int { return int(m.Sz) }},
		{"tag", func(m *AesGcmRes) int { return int(m.AuthTagSz) }},
	}}

	RsaKeyGenRequest  = Layout[RsaKeyGenReq]{Name: "rsa-keygen request"}
	RsaKeyGenResponse = Layout[KeyGenRes]{Name: "rsa-keygen response"}

	RsaRequest = Layout[RsaReq]{Name: "rsa request", Fields: []Field[RsaReq]{
		{"in", func(m *RsaReq) int { return int(m.InLen) }},
	}}
	RsaResponse = Layout[RsaRes]{Name: "rsa response", Fields: []Field[RsaRes]{
		{"out", func(m *RsaRes) int { return int(m.OutLen) }},
	}}

	RsaGetSizeRequest  = Layout[RsaGetSizeReq]{Name: "rsa-get-size request"}
	RsaGetSizeResponse = Layout[RsaGetSizeRes]{Name: "rsa-get-size response"}

	EccKeyGenRequest  = Layout[EccKeyGenReq]{Name: "ecc-keygen request"}
	EccKeyGenResponse = Layout[KeyGenRes]{Name: "ecc-keygen response"}

	EcdhRequest  = Layout[EcdhReq]{Name: "ecdh request"}
	EcdhResponse = Layout[SizeRes]{Name: "ecdh response", Fields: []Field[SizeRes]{
		{"out", func(m *SizeRes) int { return int(m.Sz) }},
	}}

	EccSignRequest = Layout[EccSignReq]{Name: "ecdsa-sign request", Fields: []Field[EccSignReq]{
		{"hash", func(m *EccSignReq) int { return int(m.Sz) }},
	}}
	EccSignResponse = Layout[SizeRes]{Name: "ecdsa-sign response", Fields: []Field[SizeRes]{
		{"sig", func(m *SizeRes) int { return int(m.Sz) }},
	}}

	EccVerifyRequest = Layout[EccVerifyReq]{Name: "ecdsa-verify request", Fields: []Field[EccVerifyReq]{
		{"sig", func(m *EccVerifyReq) int { return int(m.SigSz) }},
		{"hash", func(m *EccVerifyReq) int { return int(m.HashSz) }},
	}}
	EccVerifyResponse = Layout[EccVerifyRes]{Name: "ecdsa-verify response", Fields: []Field[EccVerifyRes]{
		{"pub", func(m *EccVerifyRes) int { return int(m.PubSz) }},
	}}

	EccCheckRequest  = Layout[EccCheckReq]{Name: "ecc-check request"}
	EccCheckResponse = Layout[OkRes]{Name: "ecc-check response"}

	Curve25519KeyGenRequest  = Layout[Curve25519KeyGenReq]{Name: "curve25519-keygen request"}
	Curve25519KeyGenResponse = Layout[KeyGenRes]{Name: "curve25519-keygen response"}

	Curve25519Request  = Layout[Curve25519Req]{Name: "curve25519 request"}
	Curve25519Response = Layout[SizeRes]{Name: "curve25519 response", Fields: []Field[SizeRes]{
		{"out", func(m *SizeRes) int { return int(m.Sz) }},
	}}

	RngRequest  = Layout[RngReq]{Name: "rng request"}
	RngResponse = Layout[SizeRes]{Name: "rng response", Fields: []Field[SizeRes]{
		{"out", func(m *SizeRes) int { return int(m.Sz) }},
	}}

	CmacRequest = Layout[CmacReq]{Name: "cmac request", Fields: []Field[CmacReq]{
		{"in", func(m *CmacReq) int { return int(m.InSz) }},
		{"key", func(m *CmacReq) int { return int(m.KeySz) }},
	}}
	CmacResponse = Layout[CmacRes]{Name: "cmac response", Fields: []Field[CmacRes]{
		{"out", func(m *CmacRes) int { return int(m.OutSz) }},
	}}
)
