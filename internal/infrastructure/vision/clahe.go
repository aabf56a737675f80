package vision

import (
	"image"
	"math"
)

// equalizeAdaptive выполняет CLAHE по сетке grid×grid тайлов.
//
// Гистограмма каждого тайла обрезается на уровне clipLimit*tileArea/256
// (не меньше 1), излишек раздаётся равномерно по всем 256 корзинам, остаток
// по одной единице с шагом 256/остаток. Значение пикселя интерполируется
// билинейно между таблицами четырёх соседних тайлов. Если изображение не
// делится на сетку, тайлы дополняются зеркальным отражением границы.
// clipLimit <= 0 отключает обрезку.
func equalizeAdaptive(src *image.Gray, clipLimit float64, grid int) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	tilesX := min(max(grid, 1), w)
	tilesY := min(max(grid, 1), h)
	tileW := (w + tilesX - 1) / tilesX
	tileH := (h + tilesY - 1) / tilesY
	tileArea := tileW * tileH

	limit := 0
	if clipLimit > 0 {
		limit = max(int(clipLimit*float64(tileArea)/256), 1)
	}
	lutScale := 255.0 / float64(tileArea)

	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			var hist [256]int
			for y := ty * tileH; y < (ty+1)*tileH; y++ {
				row := src.Pix[reflect101(y, h)*src.Stride:]
				for x := tx * tileW; x < (tx+1)*tileW; x++ {
					hist[row[reflect101(x, w)]]++
				}
			}
			if limit > 0 {
				clipHistogram(&hist, limit)
			}

			lut := &luts[ty*tilesX+tx]
			sum := 0
			for i := range hist {
				sum += hist[i]
				lut[i] = saturate(float64(sum) * lutScale)
			}
		}
	}

	// координаты тайлов и веса по X одинаковы для всех строк
	tx1s := make([]int, w)
	tx2s := make([]int, w)
	xas := make([]float64, w)
	for x := 0; x < w; x++ {
		txf := float64(x)/float64(tileW) - 0.5
		tx1 := int(math.Floor(txf))
		xas[x] = txf - float64(tx1)
		tx1s[x] = max(tx1, 0)
		tx2s[x] = min(tx1+1, tilesX-1)
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		tyf := float64(y)/float64(tileH) - 0.5
		ty1 := int(math.Floor(tyf))
		ya := tyf - float64(ty1)
		ya1 := 1 - ya
		top := luts[max(ty1, 0)*tilesX:]
		bottom := luts[min(ty1+1, tilesY-1)*tilesX:]

		srcRow := src.Pix[y*src.Stride:]
		dstRow := dst.Pix[y*dst.Stride:]
		for x := 0; x < w; x++ {
			v := srcRow[x]
			xa := xas[x]
			xa1 := 1 - xa
			t := float64(top[tx1s[x]][v])*xa1 + float64(top[tx2s[x]][v])*xa
			b := float64(bottom[tx1s[x]][v])*xa1 + float64(bottom[tx2s[x]][v])*xa
			dstRow[x] = saturate(t*ya1 + b*ya)
		}
	}
	return dst
}

func clipHistogram(hist *[256]int, limit int) {
	clipped := 0
	for i := range hist {
		if hist[i] > limit {
			clipped += hist[i] - limit
			hist[i] = limit
		}
	}

	batch := clipped / 256
	residual := clipped - batch*256
	for i := range hist {
		hist[i] += batch
	}
	if residual > 0 {
		step := max(256/residual, 1)
		for i := 0; i < 256 && residual > 0; i += step {
			hist[i]++
			residual--
		}
	}
}

// reflect101 отражает индекс за границей без повтора крайнего пикселя.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

func saturate(v float64) uint8 {
	r := math.RoundToEven(v)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return uint8(r)
}
