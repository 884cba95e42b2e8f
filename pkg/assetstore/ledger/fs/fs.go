package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/msmehub/assetstore/pkg/assetstore"
)

// Ledger is a filesystem implementation of the assetstore.ChunkLedger
// interface. Each chunk is one file named by its id, sharded by the
// first two characters of the id to keep directories small.
type Ledger struct {
	baseDir string
}

// Config options for the filesystem ledger
type Config struct {
	BaseDir string // Base directory for storing chunk files
}

// New creates a new filesystem chunk ledger
func New(config Config) (*Ledger, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Ledger{baseDir: config.BaseDir}, nil
}

// PutChunk stores data as a new file under a fresh id
func (l *Ledger) PutChunk(ctx context.Context, data []byte) (uuid.UUID, error) {
	id := uuid.New()

	path := l.chunkPath(id)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create chunk directory: %w", err)
	}

	// Write to a temp file first so a crashed write never leaves a
	// readable partial chunk.
	tmp, err := os.CreateTemp(filepath.Dir(path), "chunk-*")
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return uuid.Nil, fmt.Errorf("failed to write chunk: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return uuid.Nil, fmt.Errorf("failed to close chunk file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return uuid.Nil, fmt.Errorf("failed to place chunk file: %w", err)
	}

	return id, nil
}

// GetChunk reads the file stored under id
func (l *Ledger) GetChunk(ctx context.Context, id uuid.UUID) ([]byte, error) {
	data, err := os.ReadFile(l.chunkPath(id))
	if os.IsNotExist(err) {
		return nil, assetstore.ErrChunkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk: %w", err)
	}

	return data, nil
}

// DeleteChunk removes the file stored under id
func (l *Ledger) DeleteChunk(ctx context.Context, id uuid.UUID) error {
	err := os.Remove(l.chunkPath(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete chunk: %w", err)
	}
	return nil
}

func (l *Ledger) chunkPath(id uuid.UUID) string {
	name := id.String()
	return filepath.Join(l.baseDir, name[:2], name)
}
