package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colony-counter/internal/domain/entity"
)

func newTestStore(t *testing.T) (*Store, *FileBlobStore) {
	t.Helper()
	blobs, err := NewFileBlobStore(t.TempDir(), nil)
	require.NoError(t, err)
	return NewStore(NewMemoryRecordTable(), blobs), blobs
}

func TestStore_AddImageAndReadBack(t *testing.T) {
	ctx := context.Background()
	store, blobs := newTestStore(t)

	sessionID, err := store.CreateSession(ctx)
	require.NoError(t, err)
	require.Len(t, sessionID, 32)

	imageID, err := store.AddImage(ctx, sessionID, "plates/day1/plate.PNG", []byte("raw"))
	require.NoError(t, err)

	record, err := store.Get(ctx, imageID)
	require.NoError(t, err)
	require.Equal(t, "plate.PNG", record.Filename)
	require.Equal(t, sessionID, record.SessionID)
	require.Zero(t, record.FinalCount())

	data, err := store.ImageData(ctx, imageID)
	require.NoError(t, err)
	require.Equal(t, []byte("raw"), data)

	_, err = os.Stat(filepath.Join(blobs.Dir(), imageID+".PNG"))
	require.NoError(t, err)
}

func TestStore_AddImageDefaults(t *testing.T) {
	ctx := context.Background()
	store, blobs := newTestStore(t)
	sessionID, err := store.CreateSession(ctx)
	require.NoError(t, err)

	imageID, err := store.AddImage(ctx, sessionID, "", []byte("x"))
	require.NoError(t, err)

	record, err := store.Get(ctx, imageID)
	require.NoError(t, err)
	require.Equal(t, "upload", record.Filename)

	_, err = os.Stat(filepath.Join(blobs.Dir(), imageID+".bin"))
	require.NoError(t, err)
}

func TestStore_AddImageUnknownSession(t *testing.T) {
	store, blobs := newTestStore(t)

	_, err := store.AddImage(context.Background(), "missing", "a.png", []byte("x"))
	require.ErrorIs(t, err, entity.ErrNotFound)

	entries, err := os.ReadDir(blobs.Dir())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestStore_EnsureSession(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	generated, err := store.EnsureSession(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, generated)

	reused, err := store.EnsureSession(ctx, generated)
	require.NoError(t, err)
	require.Equal(t, generated, reused)

	named, err := store.EnsureSession(ctx, "bench-7")
	require.NoError(t, err)
	require.Equal(t, "bench-7", named)

	_, err = store.AddImage(ctx, "bench-7", "a.jpg", []byte("x"))
	require.NoError(t, err)
}

func TestStore_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	sessionID, err := store.CreateSession(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AddImage(ctx, sessionID, "a.png", []byte("x"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	records, err := store.ListBySession(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, records, 20)
}

func TestFileBlobStore_Cleanup(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old1.png"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old2.bin"), []byte("2"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "keep"), 0o755))

	blobs, err := NewFileBlobStore(dir, nil)
	require.NoError(t, err)
	require.Equal(t, 2, blobs.Cleanup())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "keep", entries[0].Name())
}

func TestFileBlobStore_RejectsPaths(t *testing.T) {
	blobs, err := NewFileBlobStore(t.TempDir(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.Error(t, blobs.Put(ctx, "../escape", []byte("x")))
	require.Error(t, blobs.Put(ctx, "", []byte("x")))

	_, err = blobs.Get(ctx, "absent.png")
	require.ErrorIs(t, err, entity.ErrNotFound)
	require.NoError(t, blobs.Delete(ctx, "absent.png"))
}

func TestMemoryOperatorRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOperatorRepository()

	op, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, op.State)

	require.NoError(t, repo.UpdateState(ctx, 1, entity.StateAwaitingPhoto))
	again, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingPhoto, again.State)

	require.NoError(t, repo.UpdateState(ctx, 99, entity.StateProcessing))
}
