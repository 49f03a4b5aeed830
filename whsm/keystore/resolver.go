package keystore

import (
	"errors"
	"fmt"

	"github.com/bigbrett/wolfHSM/whsm/keyid"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

// StagingLabel marks keys cached only for the duration of one operation.
const StagingLabel = "ClientCbTemp"

// Resolve returns the module identifier a local object refers to, or
// keyid.Erased when the key only exists locally.
func Resolve(ref keyid.Ref) keyid.KeyID {
	return ref.Wire()
}

// Stage caches material under a fresh identifier for one operation. Material
// that cannot fit in one cache request fails with ErrStageTooLarge before
// anything is sent.
func (k *Client) Stage(material []byte) (keyid.KeyID, error) {
	id, err := k.Cache(protocol.NvmFlagsNone, []byte(StagingLabel), material, keyid.Erased)
	if errors.Is(err, protocol.ErrTooLarge) {
		return keyid.Erased, fmt.Errorf("%w: %w", ErrStageTooLarge, err)
	}
	return id, err
}

// Unstage evicts an identifier obtained from Stage.
func (k *Client) Unstage(id keyid.KeyID) error {
	return k.Evict(id)
}

// WithKey runs op against the module key behind ref. When ref is local,
// encode supplies the key bytes, which are staged before op and evicted
// after it whether or not op succeeded. The first error is returned.
func (k *Client) WithKey(ref keyid.Ref, encode func() ([]byte, error), op func(keyid.KeyID) error) error {
	if id := Resolve(ref); !id.IsErased() {
		return op(id)
	}

	material, err := encode()
	if err != nil {
		return err
	}
	id, err := k.Stage(material)
	zeroize(material)
	if err != nil {
		return err
	}
	k.c.Logger().Debug("key staged", "key_id", id)

	err = op(id)
	if uerr := k.Unstage(id); err == nil {
		err = uerr
	}
	return err
}

func zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
