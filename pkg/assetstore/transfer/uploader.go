// Package transfer implements the caller-side orchestration of asset
// uploads and downloads: choosing the single-shot or chunked strategy,
// moving chunks strictly in order, reporting progress, and reassembling
// chunked downloads with integrity checks.
package transfer

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/msmehub/assetstore/pkg/assetstore"
	"github.com/zeebo/blake3"
)

const (
	// DefaultSingleShotThreshold is the largest payload stored in one
	// call; anything bigger goes through a chunked session.
	DefaultSingleShotThreshold = 1_000_000

	// DefaultChunkSize is the slice size for chunked uploads. The last
	// slice may be shorter.
	DefaultChunkSize = 500_000
)

// ProgressFunc receives upload/download progress as a whole percentage
// in [0, 100]. It is called after each completed transfer step.
type ProgressFunc func(percent int)

// Uploader decides the storage strategy for a payload and drives the
// chunked protocol when needed.
type Uploader struct {
	svc       assetstore.Service
	threshold int64
	chunkSize int64
}

// UploaderOption configures an Uploader
type UploaderOption func(*Uploader)

// WithSingleShotThreshold overrides the single-call size threshold
func WithSingleShotThreshold(n int64) UploaderOption {
	return func(u *Uploader) {
		u.threshold = n
	}
}

// WithChunkSize overrides the chunk slice size
func WithChunkSize(n int64) UploaderOption {
	return func(u *Uploader) {
		u.chunkSize = n
	}
}

// NewUploader creates an uploader on top of svc
func NewUploader(svc assetstore.Service, opts ...UploaderOption) *Uploader {
	u := &Uploader{
		svc:       svc,
		threshold: DefaultSingleShotThreshold,
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// UploadRequest describes one payload to persist
type UploadRequest struct {
	Caller      uuid.UUID
	ContentType string
	Data        io.Reader
	Size        int64
	Entity      *assetstore.EntityRef
	Progress    ProgressFunc
}

// Upload persists the payload and returns its asset id. Payloads up to
// the threshold are stored in one call; larger payloads are split into
// fixed-size chunks uploaded strictly sequentially and in source order,
// then sealed with a size and checksum validation. If any chunk append
// fails the session is aborted so no orphaned partial upload remains.
func (u *Uploader) Upload(ctx context.Context, req UploadRequest) (uuid.UUID, error) {
	if req.Size <= 0 {
		return uuid.Nil, fmt.Errorf("%w: payload size must be positive", assetstore.ErrValidation)
	}
	progress := req.Progress
	if progress == nil {
		progress = func(int) {}
	}

	if req.Size <= u.threshold {
		return u.uploadSingle(ctx, req, progress)
	}
	return u.uploadChunked(ctx, req, progress)
}

func (u *Uploader) uploadSingle(ctx context.Context, req UploadRequest, progress ProgressFunc) (uuid.UUID, error) {
	data := make([]byte, req.Size)
	if _, err := io.ReadFull(req.Data, data); err != nil {
		return uuid.Nil, fmt.Errorf("reading payload: %w", err)
	}

	asset, err := u.svc.StoreAsset(ctx, assetstore.StoreAssetRequest{
		Caller:      req.Caller,
		ContentType: req.ContentType,
		Data:        data,
		Entity:      req.Entity,
	})
	if err != nil {
		return uuid.Nil, err
	}

	progress(100)
	return asset.ID, nil
}

func (u *Uploader) uploadChunked(ctx context.Context, req UploadRequest, progress ProgressFunc) (uuid.UUID, error) {
	header, err := u.svc.BeginChunkedAsset(ctx, assetstore.BeginChunkedAssetRequest{
		Caller:      req.Caller,
		ContentType: req.ContentType,
		TotalSize:   req.Size,
		Entity:      req.Entity,
	})
	if err != nil {
		return uuid.Nil, err
	}

	totalChunks := int((req.Size + u.chunkSize - 1) / u.chunkSize)
	hasher := blake3.New()
	remaining := req.Size

	for seq := 0; seq < totalChunks; seq++ {
		n := u.chunkSize
		if remaining < n {
			n = remaining
		}

		buf := make([]byte, n)
		if _, err := io.ReadFull(req.Data, buf); err != nil {
			u.abort(ctx, req.Caller, header.ID)
			return uuid.Nil, fmt.Errorf("reading chunk %d: %w", seq, err)
		}
		hasher.Write(buf)

		if _, err := u.svc.UploadChunk(ctx, assetstore.UploadChunkRequest{
			Caller:  req.Caller,
			AssetID: header.ID,
			Seq:     seq,
			Data:    buf,
		}); err != nil {
			u.abort(ctx, req.Caller, header.ID)
			return uuid.Nil, err
		}

		remaining -= n
		progress((seq + 1) * 100 / totalChunks)
	}

	if _, err := u.svc.FinalizeChunkedAsset(ctx, assetstore.FinalizeChunkedAssetRequest{
		Caller:       req.Caller,
		AssetID:      header.ID,
		ExpectedSize: req.Size,
		Checksum:     hex.EncodeToString(hasher.Sum(nil)),
	}); err != nil {
		u.abort(ctx, req.Caller, header.ID)
		return uuid.Nil, err
	}

	return header.ID, nil
}

// abort is best effort: the expiry sweep reclaims the session if the
// abort itself fails.
func (u *Uploader) abort(ctx context.Context, caller, assetID uuid.UUID) {
	_ = u.svc.AbortChunkedAsset(ctx, assetstore.AbortChunkedAssetRequest{
		Caller:  caller,
		AssetID: assetID,
	})
}
