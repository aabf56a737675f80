package vision

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"colony-counter/internal/domain/entity"
	"colony-counter/internal/domain/port"
)

var _ port.ColonyDetector = (*NativeDetector)(nil)

// NativeDetector конвейер детекции на чистом Go, без OpenCV.
type NativeDetector struct {
	OverlayColor color.RGBA
}

// NewNativeDetector создаёт детектор с цветом окружностей для подсветки.
func NewNativeDetector(overlayColor color.RGBA) *NativeDetector {
	return &NativeDetector{OverlayColor: overlayColor}
}

// Detect прогоняет изображение через все стадии конвейера.
// Проверка min_area < max_area выполняется до работы с пикселями,
// остальные поля приводятся к допустимым значениям.
func (d *NativeDetector) Detect(ctx context.Context, img image.Image, params entity.Parameters) (*entity.DetectionResult, error) {
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

	gray := toGray(img)
	enhanced := equalizeAdaptive(gray, p.ClaheClipLimit, p.ClaheTileGridSize)
	sharp := sharpen(enhanced)
	mask := thresholdMask(sharp, p.GlobalThresh, p.AdaptiveBlockSize, p.AdaptiveC)
	mask = cleanupMask(mask, p)

	colonies := extractColonies(mask, p.MinArea, p.MaxArea)

	return &entity.DetectionResult{
		Count:    len(colonies),
		Colonies: colonies,
		Mask:     mask,
		Overlay:  drawOverlay(gray, colonies, d.OverlayColor),
	}, nil
}
