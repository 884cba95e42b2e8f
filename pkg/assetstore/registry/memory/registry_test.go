package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msmehub/assetstore/pkg/assetstore"
	"github.com/msmehub/assetstore/pkg/assetstore/registry/memory"
)

func TestAssetLifecycle(t *testing.T) {
	registry := memory.New()
	ctx := context.Background()

	asset := &assetstore.Asset{
		ID:          uuid.New(),
		ContentType: "text/plain",
		Owner:       uuid.New(),
		Data:        []byte("payload"),
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, registry.CreateAsset(ctx, asset))

	got, err := registry.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.Data, got.Data)
	assert.Equal(t, asset.Owner, got.Owner)

	// The registry stores copies; mutating a returned asset must not
	// leak back into the stored record.
	got.Data[0] = 'X'
	again, err := registry.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, byte('p'), again.Data[0])
}

func TestGetAssetNotFound(t *testing.T) {
	registry := memory.New()

	_, err := registry.GetAsset(context.Background(), uuid.New())
	assert.ErrorIs(t, err, assetstore.ErrAssetNotFound)
}

func TestIDUniqueAcrossNamespaces(t *testing.T) {
	registry := memory.New()
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, registry.CreateAsset(ctx, &assetstore.Asset{
		ID:          id,
		ContentType: "text/plain",
		Data:        []byte("x"),
		CreatedAt:   time.Now().UTC(),
	}))

	// The same id cannot name a chunked asset too.
	err := registry.CreateChunkedAsset(ctx, &assetstore.ChunkedAsset{
		ID:          id,
		ContentType: "text/plain",
		TotalSize:   1,
		CreatedAt:   time.Now().UTC(),
	})
	assert.ErrorIs(t, err, assetstore.ErrValidation)

	err = registry.CreateAsset(ctx, &assetstore.Asset{
		ID:          id,
		ContentType: "text/plain",
		Data:        []byte("y"),
		CreatedAt:   time.Now().UTC(),
	})
	assert.ErrorIs(t, err, assetstore.ErrValidation)
}

func TestAppendChunkOrdering(t *testing.T) {
	registry := memory.New()
	ctx := context.Background()

	asset := &assetstore.ChunkedAsset{
		ID:          uuid.New(),
		ContentType: "application/octet-stream",
		TotalSize:   30,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, registry.CreateChunkedAsset(ctx, asset))

	chunks := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, chunkID := range chunks {
		require.NoError(t, registry.AppendChunk(ctx, asset.ID, chunkID, 10))
	}

	got, err := registry.GetChunkedAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, chunks, got.ChunkIDs)
	assert.Equal(t, int64(30), got.StoredSize)
}

func TestAppendChunkErrors(t *testing.T) {
	registry := memory.New()
	ctx := context.Background()

	err := registry.AppendChunk(ctx, uuid.New(), uuid.New(), 1)
	assert.ErrorIs(t, err, assetstore.ErrAssetNotFound)

	asset := &assetstore.ChunkedAsset{
		ID:          uuid.New(),
		ContentType: "application/octet-stream",
		TotalSize:   10,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, registry.CreateChunkedAsset(ctx, asset))
	require.NoError(t, registry.SealChunkedAsset(ctx, asset.ID, "digest", time.Now().UTC()))

	err = registry.AppendChunk(ctx, asset.ID, uuid.New(), 1)
	assert.ErrorIs(t, err, assetstore.ErrSessionSealed)
}

func TestSealChunkedAsset(t *testing.T) {
	registry := memory.New()
	ctx := context.Background()

	asset := &assetstore.ChunkedAsset{
		ID:          uuid.New(),
		ContentType: "application/octet-stream",
		TotalSize:   10,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, registry.CreateChunkedAsset(ctx, asset))

	sealedAt := time.Now().UTC()
	require.NoError(t, registry.SealChunkedAsset(ctx, asset.ID, "digest", sealedAt))

	got, err := registry.GetChunkedAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.True(t, got.Sealed)
	assert.Equal(t, "digest", got.Checksum)
	require.NotNil(t, got.SealedAt)
	assert.Equal(t, sealedAt, *got.SealedAt)

	// A second seal is rejected at this layer; idempotency lives above.
	err = registry.SealChunkedAsset(ctx, asset.ID, "other", time.Now().UTC())
	assert.ErrorIs(t, err, assetstore.ErrSessionSealed)
}

func TestDeleteChunkedAsset(t *testing.T) {
	registry := memory.New()
	ctx := context.Background()

	asset := &assetstore.ChunkedAsset{
		ID:          uuid.New(),
		ContentType: "application/octet-stream",
		TotalSize:   10,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, registry.CreateChunkedAsset(ctx, asset))
	require.NoError(t, registry.DeleteChunkedAsset(ctx, asset.ID))

	_, err := registry.GetChunkedAsset(ctx, asset.ID)
	assert.ErrorIs(t, err, assetstore.ErrAssetNotFound)

	err = registry.DeleteChunkedAsset(ctx, asset.ID)
	assert.ErrorIs(t, err, assetstore.ErrAssetNotFound)
}

func TestListUnsealedBefore(t *testing.T) {
	registry := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	older := &assetstore.ChunkedAsset{
		ID:          uuid.New(),
		ContentType: "application/octet-stream",
		TotalSize:   10,
		CreatedAt:   now.Add(-2 * time.Hour),
	}
	newer := &assetstore.ChunkedAsset{
		ID:          uuid.New(),
		ContentType: "application/octet-stream",
		TotalSize:   10,
		CreatedAt:   now.Add(-time.Hour),
	}
	fresh := &assetstore.ChunkedAsset{
		ID:          uuid.New(),
		ContentType: "application/octet-stream",
		TotalSize:   10,
		CreatedAt:   now,
	}
	sealed := &assetstore.ChunkedAsset{
		ID:          uuid.New(),
		ContentType: "application/octet-stream",
		TotalSize:   10,
		CreatedAt:   now.Add(-3 * time.Hour),
	}
	for _, asset := range []*assetstore.ChunkedAsset{older, newer, fresh, sealed} {
		require.NoError(t, registry.CreateChunkedAsset(ctx, asset))
	}
	require.NoError(t, registry.SealChunkedAsset(ctx, sealed.ID, "digest", now))

	result, err := registry.ListUnsealedBefore(ctx, now.Add(-30*time.Minute))
	require.NoError(t, err)
	require.Len(t, result, 2)

	// Oldest first.
	assert.Equal(t, older.ID, result[0].ID)
	assert.Equal(t, newer.ID, result[1].ID)
}
