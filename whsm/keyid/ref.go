package keyid

// Ref is a weak reference from a local crypto object to a key held by the
// module. The zero Ref points at nothing. The module may drop the key at any
// time; holding a Ref does not keep it alive.
type Ref struct {
	id  KeyID
	set bool
}

// RefTo returns a Ref to id, or the empty Ref if id is erased.
func RefTo(id KeyID) Ref {
	if id.IsErased() {
		return Ref{}
	}
	return Ref{id: id, set: true}
}

// FromWire is RefTo under the name used when decoding a response.
func FromWire(id KeyID) Ref { return RefTo(id) }

// Get returns the referenced identifier and whether there is one.
func (r Ref) Get() (KeyID, bool) { return r.id, r.set }

// Wire returns the identifier to place in a request, Erased when empty.
func (r Ref) Wire() KeyID {
	if !r.set {
		return Erased
	}
	return r.id
}

// IsRemote reports whether the reference names a module-resident key.
func (r Ref) IsRemote() bool { return r.set }

func (r Ref) String() string {
	if !r.set {
		return "local"
	}
	return r.id.String()
}
