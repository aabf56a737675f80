package app

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"colony-counter/internal/domain/entity"
	"colony-counter/internal/infrastructure/vision"
)

// plateParameters параметры, при которых на plate находятся ровно два диска
func plateParameters() entity.Parameters {
	return entity.Parameters{
		GlobalThresh:       150,
		AdaptiveBlockSize:  25,
		AdaptiveC:          2,
		MorphKernelSize:    5,
		OpeningIterations:  1,
		DilationIterations: 1,
		ClosingIterations:  2,
		MinArea:            1000,
		MaxArea:            5000,
		ClaheClipLimit:     1.5,
		ClaheTileGridSize:  8,
	}
}

// plateImage светлая чашка 256x256 с двумя тёмными дисками r=25
func plateImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 256, 256))
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			v := uint8(240)
			if inDisk(x, y, 80, 80, 25) || inDisk(x, y, 180, 150, 25) {
				v = 40
			}
			img.Pix[y*img.Stride+x] = v
		}
	}
	return img
}

func platePNG(t *testing.T) []byte {
	t.Helper()
	data, err := vision.EncodePNG(plateImage())
	require.NoError(t, err)
	return data
}

func mustTIFF(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, plateImage(), nil))
	return buf.Bytes()
}

func inDisk(x, y, cx, cy, r int) bool {
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy <= r*r
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}
