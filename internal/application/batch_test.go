package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"colony-counter/internal/domain/entity"
	"colony-counter/internal/infrastructure/report"
	"colony-counter/internal/infrastructure/vision"
)

func newBatchService(workers int) *BatchService {
	return NewBatchService(vision.NewNativeDetector(vision.DefaultOverlayColor), vision.Codec{}, workers, nil)
}

func plateTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.png"), platePNG(t))
	writeFile(t, filepath.Join(root, "nested", "b.PNG"), platePNG(t))
	writeFile(t, filepath.Join(root, "notes.txt"), []byte("skip me"))
	return root
}

func TestBatchService_Collect(t *testing.T) {
	svc := newBatchService(1)
	root := plateTree(t)

	paths, err := svc.Collect(root, true)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(root, "a.png"),
		filepath.Join(root, "nested", "b.PNG"),
	}, paths)

	paths, err = svc.Collect(root, false)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(root, "a.png")}, paths)

	single := filepath.Join(root, "a.png")
	paths, err = svc.Collect(single, false)
	require.NoError(t, err)
	require.Equal(t, []string{single}, paths)
}

func TestBatchService_CollectErrors(t *testing.T) {
	svc := newBatchService(1)
	root := plateTree(t)

	_, err := svc.Collect(filepath.Join(root, "missing"), true)
	require.ErrorIs(t, err, entity.ErrNotFound)

	_, err = svc.Collect(filepath.Join(root, "notes.txt"), false)
	require.ErrorIs(t, err, entity.ErrUnsupportedImage)

	_, err = svc.Collect(t.TempDir(), true)
	require.ErrorIs(t, err, entity.ErrNoImagesFound)
}

func TestBatchService_RunRecursive(t *testing.T) {
	root := plateTree(t)
	params := plateParameters()

	rows, err := newBatchService(1).Run(context.Background(), root, true, params)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "a.png", rows[0].Filename)
	require.Equal(t, "nested/b.PNG", rows[1].Filename)
	require.Equal(t, 2, rows[0].Count)
	require.Equal(t, 2, rows[1].Count)

	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf, rows))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, []string{"filename", "count"}, records[0][:2])
}

func TestBatchService_WorkersKeepOrder(t *testing.T) {
	root := plateTree(t)
	writeFile(t, filepath.Join(root, "c.png"), platePNG(t))
	writeFile(t, filepath.Join(root, "nested", "deeper", "d.tif"), mustTIFF(t))

	sequential, err := newBatchService(1).Run(context.Background(), root, true, plateParameters())
	require.NoError(t, err)

	parallel, err := newBatchService(3).Run(context.Background(), root, true, plateParameters())
	require.NoError(t, err)
	require.Equal(t, sequential, parallel)
	require.Len(t, parallel, 4)
	require.Equal(t, "nested/deeper/d.tif", parallel[3].Filename)
}

func TestBatchService_RunSingleFile(t *testing.T) {
	root := plateTree(t)

	rows, err := newBatchService(1).Run(context.Background(), filepath.Join(root, "nested", "b.PNG"), false, plateParameters())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "b.PNG", rows[0].Filename)
}

func TestBatchService_RunErrors(t *testing.T) {
	svc := newBatchService(2)

	_, err := svc.Run(context.Background(), t.TempDir(), true, entity.DefaultParameters())
	require.ErrorIs(t, err, entity.ErrNoImagesFound)

	params := entity.DefaultParameters()
	params.MaxArea = 1
	_, err = svc.Run(context.Background(), plateTree(t), true, params)
	require.ErrorIs(t, err, entity.ErrInvalidParameters)

	root := plateTree(t)
	writeFile(t, filepath.Join(root, "broken.png"), []byte("not a png"))
	rows, err := svc.Run(context.Background(), root, true, entity.DefaultParameters())
	require.ErrorIs(t, err, entity.ErrDecode)
	require.Nil(t, rows)
}

func TestBatchService_RunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newBatchService(2).Run(ctx, plateTree(t), true, plateParameters())
	require.ErrorIs(t, err, context.Canceled)
}
