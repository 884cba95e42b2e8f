package memory_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msmehub/assetstore/pkg/assetstore"
	"github.com/msmehub/assetstore/pkg/assetstore/ledger/memory"
)

func TestPutGetDelete(t *testing.T) {
	ledger := memory.New()
	ctx := context.Background()

	id, err := ledger.PutChunk(ctx, []byte("chunk data"))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	data, err := ledger.GetChunk(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("chunk data"), data)

	require.NoError(t, ledger.DeleteChunk(ctx, id))

	_, err = ledger.GetChunk(ctx, id)
	assert.ErrorIs(t, err, assetstore.ErrChunkNotFound)
}

func TestDeleteUnknownChunkIsNoop(t *testing.T) {
	ledger := memory.New()

	assert.NoError(t, ledger.DeleteChunk(context.Background(), uuid.New()))
}

func TestStoredChunkIsIsolated(t *testing.T) {
	ledger := memory.New()
	ctx := context.Background()

	original := []byte("immutable")
	id, err := ledger.PutChunk(ctx, original)
	require.NoError(t, err)

	// Neither the caller's buffer nor a returned copy may alias the
	// stored bytes.
	original[0] = 'X'
	first, err := ledger.GetChunk(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, byte('i'), first[0])

	first[0] = 'Y'
	second, err := ledger.GetChunk(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, byte('i'), second[0])
}

func TestDistinctIDs(t *testing.T) {
	ledger := memory.New()
	ctx := context.Background()

	a, err := ledger.PutChunk(ctx, []byte("same"))
	require.NoError(t, err)
	b, err := ledger.PutChunk(ctx, []byte("same"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
