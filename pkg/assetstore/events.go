package assetstore

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) AssetStored(ctx context.Context, asset *Asset) error { return nil }

func (n *NoopEventSink) ChunkedAssetBegun(ctx context.Context, asset *ChunkedAsset) error {
	return nil
}

func (n *NoopEventSink) ChunkAppended(ctx context.Context, assetID, chunkID uuid.UUID, size int64) error {
	return nil
}

func (n *NoopEventSink) ChunkedAssetSealed(ctx context.Context, asset *ChunkedAsset) error {
	return nil
}

func (n *NoopEventSink) ChunkedAssetAborted(ctx context.Context, assetID uuid.UUID) error {
	return nil
}

// SlogEventSink logs lifecycle events through a structured logger.
type SlogEventSink struct {
	logger *slog.Logger
}

// NewSlogEventSink creates an event sink that logs to logger, or to
// slog.Default when logger is nil.
func NewSlogEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogEventSink{logger: logger}
}

func (s *SlogEventSink) AssetStored(ctx context.Context, asset *Asset) error {
	s.logger.InfoContext(ctx, "asset stored",
		"asset_id", asset.ID,
		"owner", asset.Owner,
		"content_type", asset.ContentType,
		"size", len(asset.Data))
	return nil
}

func (s *SlogEventSink) ChunkedAssetBegun(ctx context.Context, asset *ChunkedAsset) error {
	s.logger.InfoContext(ctx, "chunked asset begun",
		"asset_id", asset.ID,
		"owner", asset.Owner,
		"content_type", asset.ContentType,
		"total_size", asset.TotalSize)
	return nil
}

func (s *SlogEventSink) ChunkAppended(ctx context.Context, assetID, chunkID uuid.UUID, size int64) error {
	s.logger.DebugContext(ctx, "chunk appended",
		"asset_id", assetID,
		"chunk_id", chunkID,
		"size", size)
	return nil
}

func (s *SlogEventSink) ChunkedAssetSealed(ctx context.Context, asset *ChunkedAsset) error {
	s.logger.InfoContext(ctx, "chunked asset sealed",
		"asset_id", asset.ID,
		"chunks", len(asset.ChunkIDs),
		"stored_size", asset.StoredSize,
		"checksum", asset.Checksum)
	return nil
}

func (s *SlogEventSink) ChunkedAssetAborted(ctx context.Context, assetID uuid.UUID) error {
	s.logger.InfoContext(ctx, "chunked asset aborted", "asset_id", assetID)
	return nil
}
