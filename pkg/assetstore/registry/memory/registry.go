package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/msmehub/assetstore/pkg/assetstore"
)

// Registry implements assetstore.Registry using in-memory storage
type Registry struct {
	mu      sync.RWMutex
	assets  map[uuid.UUID]*assetstore.Asset
	chunked map[uuid.UUID]*assetstore.ChunkedAsset
}

// New creates a new in-memory registry
func New() assetstore.Registry {
	return &Registry{
		assets:  make(map[uuid.UUID]*assetstore.Asset),
		chunked: make(map[uuid.UUID]*assetstore.ChunkedAsset),
	}
}

// Single-blob assets

func (r *Registry) CreateAsset(ctx context.Context, asset *assetstore.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.idTaken(asset.ID) {
		return assetstore.ErrValidation
	}

	// Store a copy to avoid external modifications
	assetCopy := copyAsset(asset)
	r.assets[asset.ID] = assetCopy

	return nil
}

func (r *Registry) GetAsset(ctx context.Context, id uuid.UUID) (*assetstore.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	asset, exists := r.assets[id]
	if !exists {
		return nil, assetstore.ErrAssetNotFound
	}

	return copyAsset(asset), nil
}

// Chunked asset headers

func (r *Registry) CreateChunkedAsset(ctx context.Context, asset *assetstore.ChunkedAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.idTaken(asset.ID) {
		return assetstore.ErrValidation
	}

	r.chunked[asset.ID] = copyChunked(asset)

	return nil
}

func (r *Registry) GetChunkedAsset(ctx context.Context, id uuid.UUID) (*assetstore.ChunkedAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	asset, exists := r.chunked[id]
	if !exists {
		return nil, assetstore.ErrAssetNotFound
	}

	return copyChunked(asset), nil
}

func (r *Registry) AppendChunk(ctx context.Context, assetID, chunkID uuid.UUID, size int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	asset, exists := r.chunked[assetID]
	if !exists {
		return assetstore.ErrAssetNotFound
	}
	if asset.Sealed {
		return assetstore.ErrSessionSealed
	}

	asset.ChunkIDs = append(asset.ChunkIDs, chunkID)
	asset.StoredSize += size

	return nil
}

func (r *Registry) SealChunkedAsset(ctx context.Context, assetID uuid.UUID, checksum string, sealedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	asset, exists := r.chunked[assetID]
	if !exists {
		return assetstore.ErrAssetNotFound
	}
	if asset.Sealed {
		return assetstore.ErrSessionSealed
	}

	asset.Sealed = true
	asset.SealedAt = &sealedAt
	asset.Checksum = checksum

	return nil
}

func (r *Registry) DeleteChunkedAsset(ctx context.Context, assetID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.chunked[assetID]; !exists {
		return assetstore.ErrAssetNotFound
	}

	delete(r.chunked, assetID)
	return nil
}

func (r *Registry) ListUnsealedBefore(ctx context.Context, cutoff time.Time) ([]*assetstore.ChunkedAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*assetstore.ChunkedAsset
	for _, asset := range r.chunked {
		if !asset.Sealed && asset.CreatedAt.Before(cutoff) {
			result = append(result, copyChunked(asset))
		}
	}

	// Oldest first, so sweeps reclaim in creation order
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// idTaken reports whether id exists in either namespace. Callers must
// hold the lock.
func (r *Registry) idTaken(id uuid.UUID) bool {
	if _, exists := r.assets[id]; exists {
		return true
	}
	_, exists := r.chunked[id]
	return exists
}

func copyAsset(asset *assetstore.Asset) *assetstore.Asset {
	assetCopy := *asset
	assetCopy.Data = append([]byte(nil), asset.Data...)
	if asset.Entity != nil {
		entityCopy := *asset.Entity
		assetCopy.Entity = &entityCopy
	}
	return &assetCopy
}

func copyChunked(asset *assetstore.ChunkedAsset) *assetstore.ChunkedAsset {
	assetCopy := *asset
	assetCopy.ChunkIDs = append([]uuid.UUID(nil), asset.ChunkIDs...)
	if asset.Entity != nil {
		entityCopy := *asset.Entity
		assetCopy.Entity = &entityCopy
	}
	if asset.SealedAt != nil {
		sealedAt := *asset.SealedAt
		assetCopy.SealedAt = &sealedAt
	}
	return &assetCopy
}
