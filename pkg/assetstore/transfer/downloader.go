package transfer

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/msmehub/assetstore/pkg/assetstore"
	"github.com/zeebo/blake3"
)

// Downloader retrieves assets by id, reassembling chunked assets in
// header order and verifying their integrity.
type Downloader struct {
	svc assetstore.Service
}

// NewDownloader creates a downloader on top of svc
func NewDownloader(svc assetstore.Service) *Downloader {
	return &Downloader{svc: svc}
}

// Result is one retrieved asset
type Result struct {
	ID          uuid.UUID
	ContentType string
	Data        []byte
}

// Download retrieves the asset stored under id. It probes the
// single-blob namespace first, then falls back to the chunked header.
// A nil result with a nil error means the id resolved to nothing.
// A chunked asset whose reassembled length or checksum does not match
// its header yields ErrIncompleteAsset.
func (d *Downloader) Download(ctx context.Context, id uuid.UUID, progress ProgressFunc) (*Result, error) {
	if progress == nil {
		progress = func(int) {}
	}

	asset, err := d.svc.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset != nil {
		progress(100)
		return &Result{ID: asset.ID, ContentType: asset.ContentType, Data: asset.Data}, nil
	}

	header, err := d.svc.GetChunkedAssetInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, nil
	}

	data := make([]byte, 0, header.TotalSize)
	for i, chunkID := range header.ChunkIDs {
		chunk, err := d.svc.GetChunk(ctx, chunkID)
		if err != nil {
			return nil, err
		}
		if chunk == nil {
			return nil, fmt.Errorf("%w: chunk %d of %d is missing", assetstore.ErrIncompleteAsset, i+1, len(header.ChunkIDs))
		}
		data = append(data, chunk...)
		progress((i + 1) * 100 / len(header.ChunkIDs))
	}

	if int64(len(data)) != header.TotalSize {
		return nil, fmt.Errorf("%w: reassembled %d of %d declared bytes", assetstore.ErrIncompleteAsset, len(data), header.TotalSize)
	}
	if header.Checksum != "" {
		sum := blake3.Sum256(data)
		if hex.EncodeToString(sum[:]) != header.Checksum {
			return nil, fmt.Errorf("%w: checksum mismatch", assetstore.ErrIncompleteAsset)
		}
	}

	return &Result{ID: header.ID, ContentType: header.ContentType, Data: data}, nil
}

// DownloadFirst tries each candidate id in priority order and returns
// the first that resolves. Used when a logical document may reference
// either a legacy single asset or a newer chunked one. A nil result
// with a nil error means none of the candidates resolved.
func (d *Downloader) DownloadFirst(ctx context.Context, ids []uuid.UUID, progress ProgressFunc) (*Result, error) {
	for _, id := range ids {
		result, err := d.Download(ctx, id, progress)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
	}
	return nil, nil
}
