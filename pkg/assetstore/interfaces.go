package assetstore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Registry defines the interface for asset header persistence. Single
// and chunked assets share one identifier namespace: creating either
// kind with an id already taken by the other must fail.
type Registry interface {
	// Single-blob assets
	CreateAsset(ctx context.Context, asset *Asset) error
	GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error)

	// Chunked asset headers
	CreateChunkedAsset(ctx context.Context, asset *ChunkedAsset) error
	GetChunkedAsset(ctx context.Context, id uuid.UUID) (*ChunkedAsset, error)

	// AppendChunk records chunkID as the next entry of the header's
	// chunk list and adds size to its stored byte count.
	AppendChunk(ctx context.Context, assetID, chunkID uuid.UUID, size int64) error

	// SealChunkedAsset marks the header immutable. Appends to a sealed
	// header fail with ErrSessionSealed.
	SealChunkedAsset(ctx context.Context, assetID uuid.UUID, checksum string, sealedAt time.Time) error

	DeleteChunkedAsset(ctx context.Context, assetID uuid.UUID) error

	// ListUnsealedBefore returns unsealed headers created before the
	// cutoff, for session expiry sweeps.
	ListUnsealedBefore(ctx context.Context, cutoff time.Time) ([]*ChunkedAsset, error)
}

// ChunkLedger defines the interface for raw chunk payload storage. The
// ledger is append-only from the caller's point of view: a chunk is
// written once under a fresh id and never mutated. Deletion exists only
// for session abort and expiry sweeps.
type ChunkLedger interface {
	// PutChunk stores data under a fresh unique id and returns it.
	PutChunk(ctx context.Context, data []byte) (uuid.UUID, error)

	// GetChunk returns the payload stored under id, or ErrChunkNotFound.
	GetChunk(ctx context.Context, id uuid.UUID) ([]byte, error)

	// DeleteChunk removes the payload stored under id. Deleting an
	// unknown id is not an error.
	DeleteChunk(ctx context.Context, id uuid.UUID) error
}

// EventSink defines the interface for asset lifecycle event handling
type EventSink interface {
	// AssetStored is fired when a single-blob asset is persisted
	AssetStored(ctx context.Context, asset *Asset) error

	// ChunkedAssetBegun is fired when a chunked upload session opens
	ChunkedAssetBegun(ctx context.Context, asset *ChunkedAsset) error

	// ChunkAppended is fired after a chunk is recorded into a header
	ChunkAppended(ctx context.Context, assetID, chunkID uuid.UUID, size int64) error

	// ChunkedAssetSealed is fired when a session is sealed
	ChunkedAssetSealed(ctx context.Context, asset *ChunkedAsset) error

	// ChunkedAssetAborted is fired when a session is aborted or swept
	ChunkedAssetAborted(ctx context.Context, assetID uuid.UUID) error
}
