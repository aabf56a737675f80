//go:build gocv
// +build gocv

package vision

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"gocv.io/x/gocv"

	"colony-counter/internal/domain/entity"
	"colony-counter/internal/domain/port"
)

var _ port.ColonyDetector = (*GoCVDetector)(nil)

// GoCVDetector тот же конвейер, что у NativeDetector, но через OpenCV.
type GoCVDetector struct {
	OverlayColor color.RGBA
}

// NewGoCVDetector создаёт детектор на OpenCV.
func NewGoCVDetector(overlayColor color.RGBA) *GoCVDetector {
	return &GoCVDetector{OverlayColor: overlayColor}
}

// Detect прогоняет изображение через CLAHE, резкость, два порога,
// морфологию и поиск внешних контуров.
func (d *GoCVDetector) Detect(ctx context.Context, img image.Image, params entity.Parameters) (*entity.DetectionResult, error) {
	if err := params.CheckAreaRange(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", entity.ErrDecode)
	}
	p := params.Normalized()

	grayImg := toGray(img)
	w, h := grayImg.Rect.Dx(), grayImg.Rect.Dy()
	gray, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, grayImg.Pix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrDecode, err)
	}
	defer gray.Close()

	enhanced := gocv.NewMat()
	defer enhanced.Close()
	clahe := gocv.NewCLAHEWithParams(p.ClaheClipLimit, image.Pt(p.ClaheTileGridSize, p.ClaheTileGridSize))
	defer clahe.Close()
	clahe.Apply(gray, &enhanced)

	kernel := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV32F)
	defer kernel.Close()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			kernel.SetFloatAt(r, c, -1)
		}
	}
	kernel.SetFloatAt(1, 1, 10)

	sharp := gocv.NewMat()
	defer sharp.Close()
	gocv.Filter2D(enhanced, &sharp, -1, kernel, image.Pt(-1, -1), 0, gocv.BorderDefault)

	global := gocv.NewMat()
	defer global.Close()
	gocv.Threshold(sharp, &global, float32(p.GlobalThresh), 255, gocv.ThresholdBinaryInv)

	adaptive := gocv.NewMat()
	defer adaptive.Close()
	gocv.AdaptiveThreshold(sharp, &adaptive, 255, gocv.AdaptiveThresholdMean, gocv.ThresholdBinaryInv,
		p.AdaptiveBlockSize, float32(p.AdaptiveC))

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.BitwiseOr(global, adaptive, &mask)

	element := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(p.MorphKernelSize, p.MorphKernelSize))
	defer element.Close()
	repeat := func(n int, op func(gocv.Mat, *gocv.Mat, gocv.Mat)) {
		for i := 0; i < n; i++ {
			op(mask, &mask, element)
		}
	}
	erode := func(src gocv.Mat, dst *gocv.Mat, k gocv.Mat) { gocv.Erode(src, dst, k) }
	dilate := func(src gocv.Mat, dst *gocv.Mat, k gocv.Mat) { gocv.Dilate(src, dst, k) }
	repeat(p.OpeningIterations, erode)
	repeat(p.OpeningIterations, dilate)
	repeat(p.DilationIterations, dilate)
	repeat(p.ClosingIterations, dilate)
	repeat(p.ClosingIterations, erode)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	colonies := make([]entity.Colony, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		area := gocv.ContourArea(c)
		if area <= p.MinArea || area >= p.MaxArea {
			continue
		}
		rect := gocv.BoundingRect(c)
		colonies = append(colonies, entity.ColonyFromRect(rect.Min.X, rect.Min.Y, rect.Dx(), rect.Dy()))
	}

	annotated := gocv.NewMat()
	defer annotated.Close()
	gocv.CvtColor(gray, &annotated, gocv.ColorGrayToBGR)
	for _, col := range colonies {
		gocv.Circle(&annotated, image.Pt(int(col.X), int(col.Y)), max(1, int(col.Radius)), d.OverlayColor, 2)
	}
	overlay, err := matToRGBA(annotated)
	if err != nil {
		return nil, err
	}

	maskImg := image.NewGray(image.Rect(0, 0, w, h))
	copy(maskImg.Pix, mask.ToBytes())

	return &entity.DetectionResult{
		Count:    len(colonies),
		Colonies: colonies,
		Mask:     maskImg,
		Overlay:  overlay,
	}, nil
}

func matToRGBA(mat gocv.Mat) (*image.RGBA, error) {
	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert overlay: %w", err)
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Rect, img, img.Bounds().Min, draw.Src)
	return out, nil
}
