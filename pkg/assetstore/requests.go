package assetstore

import "github.com/google/uuid"

// Request DTOs. Every mutating request carries the authenticated
// caller explicitly; the service never derives identity from ambient
// state.

// StoreAssetRequest contains parameters for the single-call store path
type StoreAssetRequest struct {
	Caller      uuid.UUID
	ContentType string
	Data        []byte
	Entity      *EntityRef
}

// BeginChunkedAssetRequest contains parameters for opening a chunked
// upload session. TotalSize is the exact byte length the caller will
// upload across all chunks.
type BeginChunkedAssetRequest struct {
	Caller      uuid.UUID
	ContentType string
	TotalSize   int64
	Entity      *EntityRef
}

// UploadChunkRequest contains parameters for appending one chunk to an
// open session.
//
// Seq is the zero-based position of the chunk. It must equal the
// number of chunks already recorded; a Seq below that is treated as a
// retry of an already-recorded chunk and returns its id without
// mutating the header.
type UploadChunkRequest struct {
	Caller  uuid.UUID
	AssetID uuid.UUID
	Seq     int
	Data    []byte
}

// FinalizeChunkedAssetRequest contains parameters for sealing a
// session. ExpectedSize must match both the declared and the stored
// byte count. Checksum, when set, is the hex BLAKE3 digest of the
// whole payload and is verified against the stored chunks.
type FinalizeChunkedAssetRequest struct {
	Caller       uuid.UUID
	AssetID      uuid.UUID
	ExpectedSize int64
	Checksum     string
}

// AbortChunkedAssetRequest contains parameters for abandoning an open
// session and releasing its chunks and quota.
type AbortChunkedAssetRequest struct {
	Caller  uuid.UUID
	AssetID uuid.UUID
}
