package vision

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"colony-counter/internal/domain/entity"
)

const circleThickness = 2.0

// drawOverlay копирует полутоновое изображение в RGBA и обводит каждую колонию.
func drawOverlay(gray *image.Gray, colonies []entity.Colony, c color.RGBA) *image.RGBA {
	out := image.NewRGBA(gray.Rect)
	draw.Draw(out, out.Rect, gray, gray.Rect.Min, draw.Src)
	for _, col := range colonies {
		drawCircle(out, int(col.X), int(col.Y), max(1, int(col.Radius)), c)
	}
	return out
}

// drawCircle рисует кольцо толщиной circleThickness; точки вне изображения отбрасываются.
func drawCircle(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	inner := float64(r) - circleThickness/2
	outer := float64(r) + circleThickness/2
	reach := r + int(circleThickness)
	for y := cy - reach; y <= cy+reach; y++ {
		for x := cx - reach; x <= cx+reach; x++ {
			d := math.Hypot(float64(x-cx), float64(y-cy))
			if d < inner || d > outer {
				continue
			}
			img.SetRGBA(x, y, c)
		}
	}
}
