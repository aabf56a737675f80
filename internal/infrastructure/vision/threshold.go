package vision

import (
	"image"

	"github.com/anthonynsimon/bild/convolution"
)

const (
	foreground uint8 = 255
	background uint8 = 0
)

// sharpenKernel: центр 10, восемь соседей -1.
var sharpenKernel = func() *convolution.Kernel {
	k := convolution.NewKernel(3, 3)
	for i := range k.Matrix {
		k.Matrix[i] = -1
	}
	k.Matrix[4] = 10
	return k
}()

// sharpen подчёркивает границы колоний перед порогом.
// Значения насыщаются в [0,255], граница продолжается крайними пикселями.
func sharpen(src *image.Gray) *image.Gray {
	rgba := convolution.Convolve(src, sharpenKernel, &convolution.Options{Wrap: false, KeepAlpha: true})

	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride:]
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x] = row[x*4]
		}
	}
	return out
}

// thresholdMask объединяет через ИЛИ два порога:
//   - глобальный инвертированный: v <= globalThresh;
//   - адаптивный по среднему: v < mean(block×block) - c.
//
// Среднее считается по интегральному изображению с повтором крайних
// пикселей; сравнение ведётся в целых числах без округления среднего.
func thresholdMask(src *image.Gray, globalThresh, block, c int) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	r := block / 2
	pw, ph := w+2*r, h+2*r
	stride := pw + 1

	integral := make([]int64, stride*(ph+1))
	for py := 0; py < ph; py++ {
		row := src.Pix[clampInt(py-r, 0, h-1)*src.Stride:]
		var rowSum int64
		for px := 0; px < pw; px++ {
			rowSum += int64(row[clampInt(px-r, 0, w-1)])
			integral[(py+1)*stride+px+1] = integral[py*stride+px+1] + rowSum
		}
	}

	n := int64(block * block)
	offset := int64(c) * n
	gt := uint8(clampInt(globalThresh, 0, 255))

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		top := integral[y*stride:]
		bottom := integral[(y+block)*stride:]
		for x := 0; x < w; x++ {
			v := src.Pix[y*src.Stride+x]
			if v <= gt {
				out.Pix[y*out.Stride+x] = foreground
				continue
			}
			sum := bottom[x+block] - top[x+block] - bottom[x] + top[x]
			if int64(v)*n < sum-offset {
				out.Pix[y*out.Stride+x] = foreground
			}
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
