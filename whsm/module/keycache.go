package module

import (
	"errors"
	"sync"

	"github.com/bigbrett/wolfHSM/whsm/keyid"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

var (
	ErrNotFound = errors.New("module: key not found")
	ErrNoSpace  = errors.New("module: key cache full")
	ErrAccess   = errors.New("module: key access denied")
	ErrTooBig   = errors.New("module: key too large")
)

type entry struct {
	meta protocol.NvmMetadata
	data []byte
}

func (e *entry) clone() *entry {
	return &entry{meta: e.meta, data: append([]byte(nil), e.data...)}
}

// KeyCache holds volatile keys in a bounded set of slots, backed by a
// committed store that survives eviction.
type KeyCache struct {
	mu     sync.RWMutex
	cache  map[keyid.KeyID]*entry
	nvm    map[keyid.KeyID]*entry
	slots  int
	maxKey int
}

func NewKeyCache(slots, maxKey int) *KeyCache {
	return &KeyCache{
		cache:  map[keyid.KeyID]*entry{},
		nvm:    map[keyid.KeyID]*entry{},
		slots:  slots,
		maxKey: maxKey,
	}
}

// FreshID returns an unused identifier of type t for user.
func (c *KeyCache) FreshID(t keyid.Type, user uint8) (keyid.KeyID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := 1; i <= 0xFF; i++ {
		id := keyid.Make(t, user, uint8(i))
		_, inCache := c.cache[id]
		_, inNvm := c.nvm[id]
		if !inCache && !inNvm {
			return id, nil
		}
	}
	return keyid.Erased, ErrNoSpace
}

// Put caches data under id, replacing a modifiable entry.
func (c *KeyCache) Put(id keyid.KeyID, meta protocol.NvmMetadata, data []byte) error {
	if len(data) > c.maxKey {
		return ErrTooBig
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.cache[id]; ok {
		if old.meta.Flags&protocol.NvmFlagsNonModifiable != 0 {
			return ErrAccess
		}
	} else if len(c.cache) >= c.slots {
		return ErrNoSpace
	}
	meta.ID = uint16(id)
	meta.Len = uint16(len(data))
	c.cache[id] = &entry{meta: meta, data: append([]byte(nil), data...)}
	return nil
}

// Get returns a copy of the key, looking in the cache before NVM.
func (c *KeyCache) Get(id keyid.KeyID) (protocol.NvmMetadata, []byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.cache[id]
	if !ok {
		if e, ok = c.nvm[id]; !ok {
			return protocol.NvmMetadata{}, nil, ErrNotFound
		}
	}
	e = e.clone()
	return e.meta, e.data, nil
}

// Evict drops the cached copy only.
func (c *KeyCache) Evict(id keyid.KeyID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.cache[id]
	if !ok {
		return ErrNotFound
	}
	clear(e.data)
	delete(c.cache, id)
	return nil
}

// Commit copies a cached key to NVM.
func (c *KeyCache) Commit(id keyid.KeyID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.cache[id]
	if !ok {
		return ErrNotFound
	}
	c.nvm[id] = e.clone()
	return nil
}

// Erase removes id from cache and NVM.
func (c *KeyCache) Erase(id keyid.KeyID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, inCache := c.cache[id]
	n, inNvm := c.nvm[id]
	if !inCache && !inNvm {
		return ErrNotFound
	}
	for _, x := range []*entry{e, n} {
		if x != nil && x.meta.Flags&protocol.NvmFlagsNonDestroyable != 0 {
			return ErrAccess
		}
	}
	if inCache {
		clear(e.data)
		delete(c.cache, id)
	}
	if inNvm {
		clear(n.data)
		delete(c.nvm, id)
	}
	return nil
}

// Cached is the number of occupied cache slots.
func (c *KeyCache) Cached() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// List returns the metadata of every cached key.
func (c *KeyCache) List() []protocol.NvmMetadata {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]protocol.NvmMetadata, 0, len(c.cache))
	for _, e := range c.cache {
		out = append(out, e.meta)
	}
	return out
}
