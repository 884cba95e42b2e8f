package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msmehub/assetstore/pkg/assetstore"
	"github.com/msmehub/assetstore/pkg/assetstore/ledger/fs"
)

func TestNewRequiresBaseDir(t *testing.T) {
	_, err := fs.New(fs.Config{})
	assert.Error(t, err)
}

func TestPutGetDelete(t *testing.T) {
	ledger, err := fs.New(fs.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	id, err := ledger.PutChunk(ctx, []byte("on disk"))
	require.NoError(t, err)

	data, err := ledger.GetChunk(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("on disk"), data)

	require.NoError(t, ledger.DeleteChunk(ctx, id))

	_, err = ledger.GetChunk(ctx, id)
	assert.ErrorIs(t, err, assetstore.ErrChunkNotFound)
}

func TestDeleteUnknownChunkIsNoop(t *testing.T) {
	ledger, err := fs.New(fs.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	assert.NoError(t, ledger.DeleteChunk(context.Background(), uuid.New()))
}

func TestChunksAreSharded(t *testing.T) {
	baseDir := t.TempDir()
	ledger, err := fs.New(fs.Config{BaseDir: baseDir})
	require.NoError(t, err)

	id, err := ledger.PutChunk(context.Background(), []byte("sharded"))
	require.NoError(t, err)

	path := filepath.Join(baseDir, id.String()[:2], id.String())
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestNoPartialFilesAfterWrite(t *testing.T) {
	baseDir := t.TempDir()
	ledger, err := fs.New(fs.Config{BaseDir: baseDir})
	require.NoError(t, err)

	id, err := ledger.PutChunk(context.Background(), []byte("atomic"))
	require.NoError(t, err)

	// Writes go through a temp file and a rename; none may linger.
	entries, err := os.ReadDir(filepath.Join(baseDir, id.String()[:2]))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id.String(), entries[0].Name())
}
