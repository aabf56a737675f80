package port

import (
	"context"
	"image"

	"colony-counter/internal/domain/entity"
)

// ColonyDetector интерфейс детектора колоний
type ColonyDetector interface {
	// Detect прогоняет конвейер сегментации и возвращает найденные колонии,
	// маску и изображение с подсветкой
	Detect(ctx context.Context, img image.Image, params entity.Parameters) (*entity.DetectionResult, error)
}
