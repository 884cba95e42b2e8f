package bolt_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msmehub/assetstore/pkg/assetstore"
	"github.com/msmehub/assetstore/pkg/assetstore/ledger/bolt"
)

func openTestLedger(t *testing.T) *bolt.Ledger {
	t.Helper()

	ledger, err := bolt.Open(filepath.Join(t.TempDir(), "chunks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	return ledger
}

func TestPutGetDelete(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()

	id, err := ledger.PutChunk(ctx, []byte("durable chunk"))
	require.NoError(t, err)

	data, err := ledger.GetChunk(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("durable chunk"), data)

	require.NoError(t, ledger.DeleteChunk(ctx, id))

	_, err = ledger.GetChunk(ctx, id)
	assert.ErrorIs(t, err, assetstore.ErrChunkNotFound)
}

func TestDeleteUnknownChunkIsNoop(t *testing.T) {
	ledger := openTestLedger(t)

	assert.NoError(t, ledger.DeleteChunk(context.Background(), uuid.New()))
}

func TestReopenKeepsChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.db")
	ctx := context.Background()

	ledger, err := bolt.Open(path)
	require.NoError(t, err)
	id, err := ledger.PutChunk(ctx, []byte("survives restart"))
	require.NoError(t, err)
	require.NoError(t, ledger.Close())

	reopened, err := bolt.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	data, err := reopened.GetChunk(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("survives restart"), data)
}
