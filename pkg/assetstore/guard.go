package assetstore

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Guard enforces ownership and storage-capacity limits. It is the only
// place ErrUnauthorized and ErrStorageFull originate, keeping both
// concerns out of the registry and ledger.
//
// Capacity accounting is reservation based: every byte written through
// the service is reserved before the write and released when the asset
// or session that holds it is deleted. A failed reservation leaves the
// accounting untouched, so a rejected call never consumes budget.
type Guard struct {
	mu         sync.Mutex
	capacity   int64
	ownerLimit int64
	used       int64
	byOwner    map[uuid.UUID]int64
}

// NewGuard creates a guard with a total capacity budget and a
// per-owner byte limit. A non-positive value disables the
// corresponding limit.
func NewGuard(capacity, ownerLimit int64) *Guard {
	return &Guard{
		capacity:   capacity,
		ownerLimit: ownerLimit,
		byOwner:    make(map[uuid.UUID]int64),
	}
}

// Authorize checks that caller is the owner of the targeted resource.
func (g *Guard) Authorize(owner, caller uuid.UUID) error {
	if caller != owner {
		return ErrUnauthorized
	}
	return nil
}

// Headroom checks that owner could currently reserve n bytes, without
// reserving them. Used when opening a chunked session: the declared
// total must fit both the capacity budget and the owner's quota before
// any chunk is accepted, or the upload is doomed from the start.
func (g *Guard) Headroom(owner uuid.UUID, n int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.capacity > 0 && g.used+n > g.capacity {
		return fmt.Errorf("%w: %d bytes requested, %d available", ErrStorageFull, n, g.capacity-g.used)
	}
	if g.ownerLimit > 0 && g.byOwner[owner]+n > g.ownerLimit {
		return fmt.Errorf("%w: owner quota of %d bytes exceeded", ErrStorageFull, g.ownerLimit)
	}
	return nil
}

// Reserve claims n bytes of budget for owner.
func (g *Guard) Reserve(owner uuid.UUID, n int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.capacity > 0 && g.used+n > g.capacity {
		return fmt.Errorf("%w: %d bytes requested, %d available", ErrStorageFull, n, g.capacity-g.used)
	}
	if g.ownerLimit > 0 && g.byOwner[owner]+n > g.ownerLimit {
		return fmt.Errorf("%w: owner quota of %d bytes exceeded", ErrStorageFull, g.ownerLimit)
	}

	g.used += n
	g.byOwner[owner] += n
	return nil
}

// Release returns n bytes of budget previously reserved for owner.
func (g *Guard) Release(owner uuid.UUID, n int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.used -= n
	if g.used < 0 {
		g.used = 0
	}
	g.byOwner[owner] -= n
	if g.byOwner[owner] <= 0 {
		delete(g.byOwner, owner)
	}
}

// Used reports the total bytes currently reserved.
func (g *Guard) Used() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.used
}
