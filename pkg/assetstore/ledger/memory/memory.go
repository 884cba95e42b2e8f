package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/msmehub/assetstore/pkg/assetstore"
)

// Ledger is an in-memory implementation of the assetstore.ChunkLedger interface
type Ledger struct {
	mu     sync.RWMutex
	chunks map[uuid.UUID][]byte
}

// New creates a new in-memory chunk ledger
func New() *Ledger {
	return &Ledger{
		chunks: make(map[uuid.UUID][]byte),
	}
}

// PutChunk stores data under a fresh id
func (l *Ledger) PutChunk(ctx context.Context, data []byte) (uuid.UUID, error) {
	id := uuid.New()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.chunks[id] = append([]byte(nil), data...)
	return id, nil
}

// GetChunk returns the payload stored under id
func (l *Ledger) GetChunk(ctx context.Context, id uuid.UUID) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	data, exists := l.chunks[id]
	if !exists {
		return nil, assetstore.ErrChunkNotFound
	}

	return append([]byte(nil), data...), nil
}

// DeleteChunk removes the payload stored under id
func (l *Ledger) DeleteChunk(ctx context.Context, id uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.chunks, id)
	return nil
}
