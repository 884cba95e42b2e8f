package bolt

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/msmehub/assetstore/pkg/assetstore"
	bolt "go.etcd.io/bbolt"
)

var chunksBucket = []byte("chunks")

// Ledger is a bbolt-backed implementation of the
// assetstore.ChunkLedger interface: a single bucket mapping chunk id
// to payload. Suited to single-node deployments that want durability
// without an external service.
type Ledger struct {
	db *bolt.DB
}

// Open opens (or creates) the bolt database at path
func Open(path string) (*Ledger, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(chunksBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create chunks bucket: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close closes the underlying database
func (l *Ledger) Close() error {
	return l.db.Close()
}

// PutChunk stores data under a fresh id
func (l *Ledger) PutChunk(ctx context.Context, data []byte) (uuid.UUID, error) {
	id := uuid.New()

	err := l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(chunksBucket).Put(id[:], data)
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to write chunk: %w", err)
	}

	return id, nil
}

// GetChunk returns the payload stored under id
func (l *Ledger) GetChunk(ctx context.Context, id uuid.UUID) ([]byte, error) {
	var data []byte
	err := l.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(chunksBucket).Get(id[:])
		if v == nil {
			return assetstore.ErrChunkNotFound
		}
		// The slice is only valid inside the transaction.
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return data, nil
}

// DeleteChunk removes the payload stored under id
func (l *Ledger) DeleteChunk(ctx context.Context, id uuid.UUID) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(chunksBucket).Delete(id[:])
	})
}
