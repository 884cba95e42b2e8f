// Package assetstore persists arbitrary binary content behind opaque,
// store-assigned identifiers.
//
// Small payloads are stored in a single call. Payloads above the
// single-call ceiling go through a chunked upload session: the caller
// begins a session, appends fixed-size chunks strictly in order, and
// seals the session once every chunk has been recorded. Sealing
// validates the accumulated byte count (and a BLAKE3 checksum) against
// what the caller declared, so a truncated upload is never readable as
// a complete asset.
//
// The package is storage agnostic: asset headers live in a Registry
// (in-memory or Postgres) and chunk payloads live in a ChunkLedger
// (in-memory, filesystem, bbolt, or S3). Both are injected into the
// Service via functional options.
package assetstore
