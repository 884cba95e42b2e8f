package assetstore

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrAssetNotFound indicates the referenced asset does not exist
	ErrAssetNotFound = errors.New("asset not found")

	// ErrChunkNotFound indicates the referenced chunk does not exist
	ErrChunkNotFound = errors.New("chunk not found")

	// ErrValidation indicates malformed input (empty payload, empty
	// content type, non-positive declared size, oversized payload)
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized indicates the caller is not the resource owner
	ErrUnauthorized = errors.New("caller is not the resource owner")

	// ErrStorageFull indicates the storage capacity budget is exhausted
	ErrStorageFull = errors.New("storage capacity exhausted")

	// ErrSessionSealed indicates a mutation was attempted on an
	// already-sealed chunked asset
	ErrSessionSealed = errors.New("chunked asset is sealed")

	// ErrIncompleteAsset indicates a chunked download could not be
	// reassembled to the declared size or checksum
	ErrIncompleteAsset = errors.New("incomplete asset")
)

// AssetError represents an error from an operation on an asset
type AssetError struct {
	AssetID uuid.UUID
	Op      string
	Err     error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset operation %s failed for asset %s: %v", e.Op, e.AssetID, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// LedgerError represents an error from a chunk ledger operation
type LedgerError struct {
	ChunkID uuid.UUID
	Op      string
	Err     error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger operation %s failed for chunk %s: %v", e.Op, e.ChunkID, e.Err)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}
