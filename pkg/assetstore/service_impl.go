package assetstore

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// service implements the Service interface
type service struct {
	registry   Registry
	ledger     ChunkLedger
	guard      *Guard
	events     EventSink
	logger     *slog.Logger
	maxPayload int64
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRegistry sets the asset registry for the service
func WithRegistry(registry Registry) Option {
	return func(s *service) {
		s.registry = registry
	}
}

// WithLedger sets the chunk ledger for the service
func WithLedger(ledger ChunkLedger) Option {
	return func(s *service) {
		s.ledger = ledger
	}
}

// WithGuard sets the access/quota guard for the service
func WithGuard(guard *Guard) Option {
	return func(s *service) {
		s.guard = guard
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.events = sink
	}
}

// WithLogger sets the structured logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithMaxCallPayload overrides the per-call payload ceiling
func WithMaxCallPayload(n int64) Option {
	return func(s *service) {
		s.maxPayload = n
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		maxPayload: MaxCallPayload,
	}

	for _, option := range options {
		option(s)
	}

	if s.registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if s.ledger == nil {
		return nil, fmt.Errorf("chunk ledger is required")
	}
	if s.guard == nil {
		s.guard = NewGuard(0, 0)
	}
	if s.events == nil {
		s.events = NewNoopEventSink()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

// Single-call path

func (s *service) StoreAsset(ctx context.Context, req StoreAssetRequest) (*Asset, error) {
	if req.ContentType == "" {
		return nil, fmt.Errorf("%w: content type is empty", ErrValidation)
	}
	if len(req.Data) == 0 {
		return nil, fmt.Errorf("%w: payload is empty", ErrValidation)
	}
	if int64(len(req.Data)) > s.maxPayload {
		return nil, fmt.Errorf("%w: payload of %d bytes exceeds the %d byte call ceiling", ErrValidation, len(req.Data), s.maxPayload)
	}

	if err := s.guard.Reserve(req.Caller, int64(len(req.Data))); err != nil {
		return nil, err
	}

	asset := &Asset{
		ID:          uuid.New(),
		ContentType: req.ContentType,
		Owner:       req.Caller,
		Data:        req.Data,
		CreatedAt:   time.Now().UTC(),
		Entity:      req.Entity,
	}

	if err := s.registry.CreateAsset(ctx, asset); err != nil {
		s.guard.Release(req.Caller, int64(len(req.Data)))
		return nil, &AssetError{AssetID: asset.ID, Op: "store", Err: err}
	}

	s.fireEvent(ctx, "asset_stored", s.events.AssetStored(ctx, asset))
	return asset, nil
}

func (s *service) GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error) {
	asset, err := s.registry.GetAsset(ctx, id)
	if errors.Is(err, ErrAssetNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &AssetError{AssetID: id, Op: "get", Err: err}
	}
	return asset, nil
}

// Chunked path

func (s *service) BeginChunkedAsset(ctx context.Context, req BeginChunkedAssetRequest) (*ChunkedAsset, error) {
	if req.ContentType == "" {
		return nil, fmt.Errorf("%w: content type is empty", ErrValidation)
	}
	if req.TotalSize <= 0 {
		return nil, fmt.Errorf("%w: declared size must be positive", ErrValidation)
	}

	// The declared total must fit the remaining budget before the first
	// chunk is accepted; per-chunk reservation happens on append.
	if err := s.guard.Headroom(req.Caller, req.TotalSize); err != nil {
		return nil, err
	}

	asset := &ChunkedAsset{
		ID:          uuid.New(),
		ContentType: req.ContentType,
		Owner:       req.Caller,
		CreatedAt:   time.Now().UTC(),
		TotalSize:   req.TotalSize,
		Entity:      req.Entity,
	}

	if err := s.registry.CreateChunkedAsset(ctx, asset); err != nil {
		return nil, &AssetError{AssetID: asset.ID, Op: "begin_chunked", Err: err}
	}

	s.fireEvent(ctx, "chunked_asset_begun", s.events.ChunkedAssetBegun(ctx, asset))
	return asset, nil
}

func (s *service) UploadChunk(ctx context.Context, req UploadChunkRequest) (uuid.UUID, error) {
	header, err := s.registry.GetChunkedAsset(ctx, req.AssetID)
	if err != nil {
		return uuid.Nil, &AssetError{AssetID: req.AssetID, Op: "upload_chunk", Err: err}
	}
	if err := s.guard.Authorize(header.Owner, req.Caller); err != nil {
		return uuid.Nil, err
	}
	if header.Sealed {
		return uuid.Nil, &AssetError{AssetID: req.AssetID, Op: "upload_chunk", Err: ErrSessionSealed}
	}

	if len(req.Data) == 0 {
		return uuid.Nil, fmt.Errorf("%w: chunk payload is empty", ErrValidation)
	}
	if int64(len(req.Data)) > s.maxPayload {
		return uuid.Nil, fmt.Errorf("%w: chunk of %d bytes exceeds the %d byte call ceiling", ErrValidation, len(req.Data), s.maxPayload)
	}

	// A sequence index below the recorded count is a retry of a chunk
	// that already landed; acknowledge it with the recorded id, but only
	// if the retried payload matches what was stored.
	if req.Seq >= 0 && req.Seq < len(header.ChunkIDs) {
		chunkID := header.ChunkIDs[req.Seq]
		stored, err := s.ledger.GetChunk(ctx, chunkID)
		if err != nil {
			return uuid.Nil, &LedgerError{ChunkID: chunkID, Op: "upload_chunk", Err: err}
		}
		if !bytes.Equal(stored, req.Data) {
			return uuid.Nil, fmt.Errorf("%w: retried chunk %d does not match the recorded payload", ErrValidation, req.Seq)
		}
		return chunkID, nil
	}
	if req.Seq != len(header.ChunkIDs) {
		return uuid.Nil, fmt.Errorf("%w: sequence index %d, expected %d", ErrValidation, req.Seq, len(header.ChunkIDs))
	}
	if header.StoredSize+int64(len(req.Data)) > header.TotalSize {
		return uuid.Nil, fmt.Errorf("%w: chunk would exceed the declared size of %d bytes", ErrValidation, header.TotalSize)
	}

	if err := s.guard.Reserve(header.Owner, int64(len(req.Data))); err != nil {
		return uuid.Nil, err
	}

	chunkID, err := s.ledger.PutChunk(ctx, req.Data)
	if err != nil {
		s.guard.Release(header.Owner, int64(len(req.Data)))
		return uuid.Nil, &LedgerError{Op: "put_chunk", Err: err}
	}

	if err := s.registry.AppendChunk(ctx, req.AssetID, chunkID, int64(len(req.Data))); err != nil {
		if delErr := s.ledger.DeleteChunk(ctx, chunkID); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete orphaned chunk", "chunk_id", chunkID, "error", delErr)
		}
		s.guard.Release(header.Owner, int64(len(req.Data)))
		return uuid.Nil, &AssetError{AssetID: req.AssetID, Op: "upload_chunk", Err: err}
	}

	s.fireEvent(ctx, "chunk_appended", s.events.ChunkAppended(ctx, req.AssetID, chunkID, int64(len(req.Data))))
	return chunkID, nil
}

func (s *service) FinalizeChunkedAsset(ctx context.Context, req FinalizeChunkedAssetRequest) (*ChunkedAsset, error) {
	header, err := s.registry.GetChunkedAsset(ctx, req.AssetID)
	if err != nil {
		return nil, &AssetError{AssetID: req.AssetID, Op: "finalize", Err: err}
	}
	if err := s.guard.Authorize(header.Owner, req.Caller); err != nil {
		return nil, err
	}
	if header.Sealed {
		// Sealing is idempotent.
		return header, nil
	}

	if req.ExpectedSize != header.TotalSize {
		return nil, fmt.Errorf("%w: expected size %d does not match the declared %d", ErrValidation, req.ExpectedSize, header.TotalSize)
	}
	if header.StoredSize != header.TotalSize {
		return nil, fmt.Errorf("%w: stored %d of %d declared bytes", ErrValidation, header.StoredSize, header.TotalSize)
	}

	checksum, err := s.checksumChunks(ctx, header)
	if err != nil {
		return nil, &AssetError{AssetID: req.AssetID, Op: "finalize", Err: err}
	}
	if req.Checksum != "" && req.Checksum != checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrValidation)
	}

	sealedAt := time.Now().UTC()
	if err := s.registry.SealChunkedAsset(ctx, req.AssetID, checksum, sealedAt); err != nil {
		return nil, &AssetError{AssetID: req.AssetID, Op: "finalize", Err: err}
	}

	header.Sealed = true
	header.SealedAt = &sealedAt
	header.Checksum = checksum

	s.fireEvent(ctx, "chunked_asset_sealed", s.events.ChunkedAssetSealed(ctx, header))
	return header, nil
}

func (s *service) AbortChunkedAsset(ctx context.Context, req AbortChunkedAssetRequest) error {
	header, err := s.registry.GetChunkedAsset(ctx, req.AssetID)
	if err != nil {
		return &AssetError{AssetID: req.AssetID, Op: "abort", Err: err}
	}
	if err := s.guard.Authorize(header.Owner, req.Caller); err != nil {
		return err
	}
	if header.Sealed {
		return &AssetError{AssetID: req.AssetID, Op: "abort", Err: ErrSessionSealed}
	}

	return s.reclaimSession(ctx, header)
}

func (s *service) GetChunkedAssetInfo(ctx context.Context, id uuid.UUID) (*ChunkedAsset, error) {
	header, err := s.registry.GetChunkedAsset(ctx, id)
	if errors.Is(err, ErrAssetNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &AssetError{AssetID: id, Op: "get_info", Err: err}
	}
	return header, nil
}

func (s *service) GetChunk(ctx context.Context, id uuid.UUID) ([]byte, error) {
	data, err := s.ledger.GetChunk(ctx, id)
	if errors.Is(err, ErrChunkNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &LedgerError{ChunkID: id, Op: "get_chunk", Err: err}
	}
	return data, nil
}

// Maintenance

func (s *service) SweepExpiredSessions(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	headers, err := s.registry.ListUnsealedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("listing expired sessions: %w", err)
	}

	swept := 0
	for _, header := range headers {
		if err := s.reclaimSession(ctx, header); err != nil {
			s.logger.WarnContext(ctx, "failed to reclaim expired session", "asset_id", header.ID, "error", err)
			continue
		}
		swept++
	}
	return swept, nil
}

// Helper methods

// reclaimSession deletes a session's chunks and header and releases the
// quota they held. Chunk deletion is best effort: a chunk that cannot
// be removed now is orphaned, not leaked forever, because DeleteChunk
// tolerates retries.
func (s *service) reclaimSession(ctx context.Context, header *ChunkedAsset) error {
	for _, chunkID := range header.ChunkIDs {
		if err := s.ledger.DeleteChunk(ctx, chunkID); err != nil {
			s.logger.WarnContext(ctx, "failed to delete chunk during reclaim", "chunk_id", chunkID, "error", err)
		}
	}

	if err := s.registry.DeleteChunkedAsset(ctx, header.ID); err != nil {
		return &AssetError{AssetID: header.ID, Op: "reclaim", Err: err}
	}

	s.guard.Release(header.Owner, header.StoredSize)
	s.fireEvent(ctx, "chunked_asset_aborted", s.events.ChunkedAssetAborted(ctx, header.ID))
	return nil
}

// checksumChunks computes the BLAKE3 digest of the session's payload in
// reconstruction order.
func (s *service) checksumChunks(ctx context.Context, header *ChunkedAsset) (string, error) {
	hasher := blake3.New()
	for _, chunkID := range header.ChunkIDs {
		data, err := s.ledger.GetChunk(ctx, chunkID)
		if err != nil {
			return "", fmt.Errorf("reading chunk %s: %w", chunkID, err)
		}
		hasher.Write(data)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (s *service) fireEvent(ctx context.Context, event string, err error) {
	if err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", event, "error", err)
	}
}
