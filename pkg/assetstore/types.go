package assetstore

import (
	"time"

	"github.com/google/uuid"
)

// MaxCallPayload is the default hard ceiling on the byte payload of a
// single store or chunk-append call. Payloads above it must go through
// the chunked path.
const MaxCallPayload = 2 << 20

// EntityRef links an asset to a domain object owned by an external
// collaborator (e.g. a registration document or an NFT image). The
// store treats it as an opaque tag.
type EntityRef struct {
	Type string `json:"entity_type"`
	ID   string `json:"entity_id"`
}

// Asset is a single-blob asset created atomically by one call and
// never mutated afterwards.
type Asset struct {
	ID          uuid.UUID  `json:"id"`
	ContentType string     `json:"content_type"`
	Owner       uuid.UUID  `json:"owner"`
	Data        []byte     `json:"data,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	Entity      *EntityRef `json:"entity,omitempty"`
}

// ChunkedAsset is the header of a chunk-assembled asset.
//
// ChunkIDs is the authoritative reconstruction order: concatenating the
// referenced chunks in slice order yields the original payload.
// TotalSize is the size declared when the session was begun; StoredSize
// is the sum of the chunk payloads actually appended. The two must
// match before the header can be sealed.
type ChunkedAsset struct {
	ID          uuid.UUID   `json:"id"`
	ContentType string      `json:"content_type"`
	Owner       uuid.UUID   `json:"owner"`
	CreatedAt   time.Time   `json:"created_at"`
	ChunkIDs    []uuid.UUID `json:"chunk_ids"`
	TotalSize   int64       `json:"total_size"`
	StoredSize  int64       `json:"stored_size"`
	Sealed      bool        `json:"sealed"`
	SealedAt    *time.Time  `json:"sealed_at,omitempty"`
	Checksum    string      `json:"checksum,omitempty"`
	Entity      *EntityRef  `json:"entity,omitempty"`
}
