package vision

import (
	"image"

	"colony-counter/internal/domain/entity"
)

// cleanupMask применяет морфологию квадратным элементом k×k:
// открытие, наращивание и закрытие. Открытие с n итерациями это n эрозий
// и затем n наращиваний, закрытие наоборот.
func cleanupMask(mask *image.Gray, p entity.Parameters) *image.Gray {
	k := p.MorphKernelSize
	out := repeatMorph(mask, k, p.OpeningIterations, false)
	out = repeatMorph(out, k, p.OpeningIterations, true)
	out = repeatMorph(out, k, p.DilationIterations, true)
	out = repeatMorph(out, k, p.ClosingIterations, true)
	out = repeatMorph(out, k, p.ClosingIterations, false)
	return out
}

func repeatMorph(src *image.Gray, k, iterations int, dilate bool) *image.Gray {
	out := src
	for i := 0; i < iterations; i++ {
		out = morph(out, k, dilate)
	}
	return out
}

// morph считает максимум (наращивание) или минимум (эрозия) по окну k×k
// с якорем k/2. Пиксели за границей изображения в окно не попадают.
// Прямоугольный элемент раскладывается на проход по строкам и по столбцам.
func morph(src *image.Gray, k int, dilate bool) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if k <= 1 {
		for y := 0; y < h; y++ {
			copy(out.Pix[y*out.Stride:y*out.Stride+w], src.Pix[y*src.Stride:y*src.Stride+w])
		}
		return out
	}

	pick := func(a, b uint8) uint8 {
		if dilate == (b > a) {
			return b
		}
		return a
	}

	anchor := k / 2
	rows := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			lo := max(x-anchor, 0)
			hi := min(x-anchor+k-1, w-1)
			v := row[lo]
			for i := lo + 1; i <= hi; i++ {
				v = pick(v, row[i])
			}
			rows[y*w+x] = v
		}
	}

	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			lo := max(y-anchor, 0)
			hi := min(y-anchor+k-1, h-1)
			v := rows[lo*w+x]
			for i := lo + 1; i <= hi; i++ {
				v = pick(v, rows[i*w+x])
			}
			out.Pix[y*out.Stride+x] = v
		}
	}
	return out
}
