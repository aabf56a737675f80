//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"image"
	"image/color"

	"colony-counter/internal/domain/entity"
	"colony-counter/internal/domain/port"
)

var _ port.ColonyDetector = (*GoCVDetector)(nil)

type GoCVDetector struct {
	OverlayColor color.RGBA
}

// NewGoCVDetector создаёт детектор-заглушку (без OpenCV).
func NewGoCVDetector(overlayColor color.RGBA) *GoCVDetector {
	return &GoCVDetector{OverlayColor: overlayColor}
}

// Detect возвращает ошибку, если сборка без тега gocv.
func (d *GoCVDetector) Detect(ctx context.Context, img image.Image, params entity.Parameters) (*entity.DetectionResult, error) {
	_ = ctx
	_ = img
	_ = params
	return nil, entity.ErrBackendUnavailable
}
