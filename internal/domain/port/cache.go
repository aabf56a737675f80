package port

import (
	"context"

	"colony-counter/internal/domain/entity"
)

// CachedDetection то, что сохраняется в кэше детекций
type CachedDetection struct {
	Count    int             `json:"count"`
	Colonies []entity.Colony `json:"colonies"`
}

// DetectionCache кэш результатов детекции по содержимому изображения и параметрам
type DetectionCache interface {
	// Get возвращает nil, nil при промахе
	Get(ctx context.Context, imageData []byte, params entity.Parameters) (*CachedDetection, error)
	Set(ctx context.Context, imageData []byte, params entity.Parameters, value *CachedDetection) error
}
