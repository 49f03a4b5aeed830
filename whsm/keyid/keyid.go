// Package keyid defines the 16-bit identifiers that name keys held by a
// security module, and the optional reference a local crypto object uses to
// point at one.
package keyid

import (
	"fmt"
	"strconv"
)

// KeyID is laid out as type(4) | user(4) | id(8).
type KeyID uint16

const (
	typeMask  = 0xF000
	typeShift = 12
	userMask  = 0x0F00
	userShift = 8
	idMask    = 0x00FF
)

// Erased is the "no key" identifier.
const Erased KeyID = 0

// Type is the storage class of a key.
type Type uint8

const (
	TypeNvm     Type = 0
	TypeCrypto  Type = 1
	TypeShe     Type = 2
	TypeCounter Type = 3
	TypeWrapped Type = 4
)

// Legacy class values, already shifted into the type nibble.
const (
	ClassCrypto KeyID = 0x1000
	ClassShe    KeyID = 0x2000
	ClassSheRam KeyID = 0x3000
)

// Flags a client may set on the identifier it sends.
const (
	FlagGlobal  KeyID = 0x0100
	FlagWrapped KeyID = 0x0200
	flagMask          = FlagGlobal | FlagWrapped
)

// UserGlobal is the user nibble shared by every client.
const UserGlobal uint8 = 0

func Make(t Type, user uint8, id uint8) KeyID {
	return KeyID(uint16(t)<<typeShift&typeMask | uint16(user)<<userShift&userMask | uint16(id))
}

func (k KeyID) Type() Type { return Type((uint16(k) & typeMask) >> typeShift) }

func (k KeyID) User() uint8 { return uint8((uint16(k) & userMask) >> userShift) }

func (k KeyID) ID() uint8 { return uint8(uint16(k) & idMask) }

// IsErased reports whether the index bits are zero. An identifier with a
// type or user but no index names nothing.
func (k KeyID) IsErased() bool { return k.ID() == 0 }

func (k KeyID) String() string {
	return fmt.Sprintf("0x%04x", uint16(k))
}

// Parse accepts decimal or 0x-prefixed hex.
func Parse(s string) (KeyID, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return Erased, fmt.Errorf("keyid: %w", err)
	}
	return KeyID(v), nil
}

// TranslateFromClient builds the server-side identifier for a client
// request. Global keys land in the shared user slot; wrapped keys take the
// wrapped type regardless of t.
func TranslateFromClient(t Type, clientID uint8, reqID KeyID) KeyID {
	user := clientID
	if reqID&FlagGlobal != 0 {
		user = UserGlobal
	}
	if reqID&FlagWrapped != 0 {
		t = TypeWrapped
	}
	return Make(t, user, reqID.ID())
}

// ToClient strips a server-side identifier down to what a client sees: the
// index plus the global and wrapped flags.
func ToClient(serverID KeyID) KeyID {
	out := KeyID(serverID.ID())
	if serverID.User() == UserGlobal && !serverID.IsErased() {
		out |= FlagGlobal
	}
	if serverID.Type() == TypeWrapped {
		out |= FlagWrapped
	}
	return out
}

// ClientFlags returns only the client flag bits of k.
func (k KeyID) ClientFlags() KeyID { return k & flagMask }
