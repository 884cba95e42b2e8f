package assetstore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service defines the operation surface of the asset store.
//
// Mutating operations return wrapped sentinel errors (ErrValidation,
// ErrUnauthorized, ErrAssetNotFound, ErrStorageFull, ErrSessionSealed).
// Query operations never treat a miss as an error: an unknown id yields
// a nil result and a nil error, because speculative lookups are a
// normal part of the download path.
type Service interface {
	// Single-call path
	StoreAsset(ctx context.Context, req StoreAssetRequest) (*Asset, error)
	GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error)

	// Chunked path
	BeginChunkedAsset(ctx context.Context, req BeginChunkedAssetRequest) (*ChunkedAsset, error)
	UploadChunk(ctx context.Context, req UploadChunkRequest) (uuid.UUID, error)
	FinalizeChunkedAsset(ctx context.Context, req FinalizeChunkedAssetRequest) (*ChunkedAsset, error)
	AbortChunkedAsset(ctx context.Context, req AbortChunkedAssetRequest) error
	GetChunkedAssetInfo(ctx context.Context, id uuid.UUID) (*ChunkedAsset, error)
	GetChunk(ctx context.Context, id uuid.UUID) ([]byte, error)

	// Maintenance: delete unsealed sessions older than olderThan along
	// with their chunks, returning the number of sessions reclaimed.
	SweepExpiredSessions(ctx context.Context, olderThan time.Duration) (int, error)
}
