package vision

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"

	"colony-counter/internal/domain/entity"
)

func TestFindExternalContours_Rectangle(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 30, 30))
	fillRect(mask, image.Rect(5, 5, 16, 16), foreground)

	contours := findExternalContours(mask)
	require.Len(t, contours, 1)
	require.Equal(t, 100.0, polygonArea(contours[0]))
	require.Equal(t, image.Rect(5, 5, 16, 16), boundingRect(contours[0]))
}

func TestFindExternalContours_TouchingBorder(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 10, 10))
	fillRect(mask, image.Rect(0, 0, 4, 3), foreground)

	contours := findExternalContours(mask)
	require.Len(t, contours, 1)
	require.Equal(t, 6.0, polygonArea(contours[0]))
	require.Equal(t, image.Rect(0, 0, 4, 3), boundingRect(contours[0]))
}

func TestFindExternalContours_HolesAndNestedRegionsIgnored(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 50, 50))
	fillRect(mask, image.Rect(10, 10, 31, 31), foreground)
	fillRect(mask, image.Rect(13, 13, 28, 28), background)
	fillRect(mask, image.Rect(18, 18, 23, 23), foreground)

	contours := findExternalContours(mask)
	require.Len(t, contours, 1)
	require.Equal(t, 400.0, polygonArea(contours[0]))
}

func TestFindExternalContours_RasterOrder(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 40, 40))
	fillRect(mask, image.Rect(25, 20, 30, 25), foreground)
	fillRect(mask, image.Rect(2, 2, 6, 6), foreground)

	contours := findExternalContours(mask)
	require.Len(t, contours, 2)
	require.Equal(t, image.Rect(2, 2, 6, 6), boundingRect(contours[0]))
	require.Equal(t, image.Rect(25, 20, 30, 25), boundingRect(contours[1]))
}

func TestFindExternalContours_DiagonalIsOneRegion(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 6, 6))
	for i := 1; i < 5; i++ {
		mask.Pix[i*mask.Stride+i] = foreground
	}

	contours := findExternalContours(mask)
	require.Len(t, contours, 1)
	require.Equal(t, image.Rect(1, 1, 5, 5), boundingRect(contours[0]))
	require.Zero(t, polygonArea(contours[0]))
}

func TestFindExternalContours_SinglePixel(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 5, 5))
	mask.Pix[2*mask.Stride+3] = foreground

	contours := findExternalContours(mask)
	require.Len(t, contours, 1)
	require.Equal(t, []image.Point{{3, 2}}, contours[0])
}

func TestExtractColonies_AreaBoundsAreExclusive(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 30, 30))
	fillRect(mask, image.Rect(5, 5, 16, 16), foreground)

	tests := []struct {
		name     string
		min, max float64
		want     int
	}{
		{"inside", 99, 101, 1},
		{"equal to min", 100, 200, 0},
		{"equal to max", 50, 100, 0},
		{"below range", 101, 200, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Len(t, extractColonies(mask, tt.min, tt.max), tt.want)
		})
	}

	colonies := extractColonies(mask, 99, 101)
	require.Equal(t, entity.Colony{X: 10.5, Y: 10.5, Radius: 5.5}, colonies[0])
}

func TestExtractColonies_EmptyMask(t *testing.T) {
	colonies := extractColonies(image.NewGray(image.Rect(0, 0, 8, 8)), 1, 10)
	require.NotNil(t, colonies)
	require.Empty(t, colonies)
}
