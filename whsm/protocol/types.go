package protocol

import "fmt"

// Group selects the subsystem a message is addressed to. It occupies the
// high byte of a Kind.
type Group uint16

const (
	GroupComm   Group = 0x0100
	GroupNvm    Group = 0x0200
	GroupKey    Group = 0x0300
	GroupCrypto Group = 0x0400
	GroupImage  Group = 0x0500
	GroupPkcs11 Group = 0x0600
	GroupShe    Group = 0x0700
	GroupCustom Group = 0x1000
)

const (
	groupMask  = 0xFF00
	actionMask = 0x00FF
)

func (g Group) String() string {
	switch g {
	case GroupComm:
		return "COMM"
	case GroupNvm:
		return "NVM"
	case GroupKey:
		return "KEY"
	case GroupCrypto:
		return "CRYPTO"
	case GroupImage:
		return "IMAGE"
	case GroupPkcs11:
		return "PKCS11"
	case GroupShe:
		return "SHE"
	case GroupCustom:
		return "CUSTOM"
	default:
		return "UNKNOWN"
	}
}

// Comm group actions.
const (
	CommActionInit  uint16 = 1
	CommActionClose uint16 = 3
	CommActionEcho  uint16 = 5
)

// Key group actions.
const (
	KeyActionCache  uint16 = 0
	KeyActionEvict  uint16 = 1
	KeyActionExport uint16 = 2
	KeyActionCommit uint16 = 3
	KeyActionErase  uint16 = 4
)

// Kind is the 16-bit group/action discriminant that travels next to a packet,
// never inside it.
type Kind uint16

func MakeKind(g Group, action uint16) Kind {
	return Kind(uint16(g)&groupMask | action&actionMask)
}

func (k Kind) Group() Group { return Group(uint16(k) & groupMask) }

func (k Kind) Action() uint16 { return uint16(k) & actionMask }

func (k Kind) String() string {
	return fmt.Sprintf("%s/%d", k.Group(), k.Action())
}
