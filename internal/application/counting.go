package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"colony-counter/internal/domain/entity"
	"colony-counter/internal/domain/port"
)

type CountingService struct {
	store    port.RecordStore
	detector port.ColonyDetector
	codec    port.ImageCodec
	cache    port.DetectionCache
	events   port.EventPublisher
	logger   *zap.Logger
}

// UploadFile один файл из запроса на загрузку
type UploadFile struct {
	Filename string
	Data     []byte
}

// UploadedImage идентификатор, выданный загруженному файлу
type UploadedImage struct {
	ImageID  string `json:"image_id"`
	Filename string `json:"filename"`
}

// UploadOutput результат загрузки пачки файлов
type UploadOutput struct {
	SessionID string          `json:"session_id"`
	Images    []UploadedImage `json:"images"`
}

// ProcessOutput результат детекции для одного изображения.
// MaskPNG кодируется в JSON как base64.
type ProcessOutput struct {
	ImageID    string            `json:"image_id"`
	SessionID  string            `json:"session_id"`
	Count      int               `json:"count"`
	Colonies   []entity.Colony   `json:"colonies"`
	Parameters entity.Parameters `json:"parameters"`
	MaskPNG    []byte            `json:"mask_png,omitempty"`
	Cached     bool              `json:"cached"`
}

// AnnotationOutput разбивка итогового счёта изображения
type AnnotationOutput struct {
	ImageID   string `json:"image_id"`
	SessionID string `json:"session_id"`
	entity.Reconciliation
}

// NewCountingService создаёт сервис подсчёта колоний.
// cache и events могут быть nil.
func NewCountingService(store port.RecordStore, detector port.ColonyDetector, codec port.ImageCodec,
	cache port.DetectionCache, events port.EventPublisher, logger *zap.Logger) *CountingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CountingService{
		store:    store,
		detector: detector,
		codec:    codec,
		cache:    cache,
		events:   events,
		logger:   logger,
	}
}

// Upload проверяет, что каждый файл декодируется, и сохраняет его в сессию.
// Пустой sessionID создаёт новую сессию.
func (s *CountingService) Upload(ctx context.Context, sessionID string, files []UploadFile) (*UploadOutput, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in upload", entity.ErrNoImagesFound)
	}
	for _, f := range files {
		if _, err := s.codec.Decode(f.Data); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Filename, err)
		}
	}

	sessionID, err := s.store.EnsureSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	out := &UploadOutput{SessionID: sessionID, Images: make([]UploadedImage, 0, len(files))}
	for _, f := range files {
		imageID, err := s.store.AddImage(ctx, sessionID, f.Filename, f.Data)
		if err != nil {
			return nil, err
		}
		record, err := s.store.Get(ctx, imageID)
		if err != nil {
			return nil, err
		}
		out.Images = append(out.Images, UploadedImage{ImageID: imageID, Filename: record.Filename})
	}

	s.logger.Info("images uploaded", zap.String("session_id", sessionID), zap.Int("count", len(out.Images)))
	return out, nil
}

// Process запускает детектор на сохранённом изображении и записывает результат.
// Если маска не нужна, сначала проверяется кэш.
func (s *CountingService) Process(ctx context.Context, imageID string, params entity.Parameters, withMask bool) (*ProcessOutput, error) {
	params, err := entity.NewParameters(params)
	if err != nil {
		return nil, err
	}

	record, err := s.store.Get(ctx, imageID)
	if err != nil {
		return nil, err
	}
	data, err := s.store.ImageData(ctx, imageID)
	if err != nil {
		return nil, err
	}

	out := &ProcessOutput{ImageID: imageID, SessionID: record.SessionID, Parameters: params}

	var cached *port.CachedDetection
	if s.cache != nil && !withMask {
		cached, _ = s.cache.Get(ctx, data, params)
	}

	if cached != nil {
		out.Count = cached.Count
		out.Colonies = cached.Colonies
		out.Cached = true
	} else {
		result, err := s.detect(ctx, data, params)
		if err != nil {
			return nil, err
		}
		out.Count = result.Count
		out.Colonies = result.Colonies

		if withMask {
			mask, err := s.codec.EncodePNG(result.Mask)
			if err != nil {
				return nil, err
			}
			out.MaskPNG = mask
		}
		if s.cache != nil {
			_ = s.cache.Set(ctx, data, params, &port.CachedDetection{Count: result.Count, Colonies: result.Colonies})
		}
	}
	if out.Colonies == nil {
		out.Colonies = []entity.Colony{}
	}

	if err := s.store.SaveDetection(ctx, imageID, out.Colonies, out.Count, params); err != nil {
		return nil, err
	}

	final := entity.Reconcile(out.Count, record.ManualAdded, record.ManualRemoved).FinalCount
	s.publish(port.Event{
		Type:       port.EventDetectionSaved,
		SessionID:  record.SessionID,
		ImageID:    imageID,
		Count:      out.Count,
		FinalCount: final,
	})

	s.logger.Info("colonies detected",
		zap.String("image_id", imageID),
		zap.Int("count", out.Count),
		zap.Bool("cached", out.Cached))
	return out, nil
}

// Overlay возвращает PNG с обведёнными колониями. Без параметров берутся
// последние использованные для изображения, а если их нет, то параметры по умолчанию.
func (s *CountingService) Overlay(ctx context.Context, imageID string, params *entity.Parameters) ([]byte, error) {
	record, err := s.store.Get(ctx, imageID)
	if err != nil {
		return nil, err
	}

	p := entity.DefaultParameters()
	switch {
	case params != nil:
		p = *params
	case record.LastParameters != nil:
		p = *record.LastParameters
	}
	p, err = entity.NewParameters(p)
	if err != nil {
		return nil, err
	}

	data, err := s.store.ImageData(ctx, imageID)
	if err != nil {
		return nil, err
	}
	result, err := s.detect(ctx, data, p)
	if err != nil {
		return nil, err
	}
	return s.codec.EncodePNG(result.Overlay)
}

// DetectBytes прогоняет детектор на байтах, которые не сохраняются в хранилище
func (s *CountingService) DetectBytes(ctx context.Context, data []byte, params entity.Parameters) (*entity.DetectionResult, error) {
	params, err := entity.NewParameters(params)
	if err != nil {
		return nil, err
	}
	return s.detect(ctx, data, params)
}

// Annotate заменяет ручные правки и возвращает пересчитанный итог.
// nil-список оставляет сохранённые правки без изменений.
func (s *CountingService) Annotate(ctx context.Context, imageID string, added, removed *[]entity.Colony) (*AnnotationOutput, error) {
	for _, list := range []*[]entity.Colony{added, removed} {
		if list == nil {
			continue
		}
		if err := entity.ValidateColonies(*list); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateAnnotations(ctx, imageID, added, removed); err != nil {
		return nil, err
	}

	out, err := s.Summary(ctx, imageID)
	if err != nil {
		return nil, err
	}

	s.publish(port.Event{
		Type:       port.EventAnnotationsUpdated,
		SessionID:  out.SessionID,
		ImageID:    imageID,
		Count:      out.AutoCount,
		FinalCount: out.FinalCount,
	})
	return out, nil
}

// Summary сводит текущие сохранённые списки записи в итоговый счёт
func (s *CountingService) Summary(ctx context.Context, imageID string) (*AnnotationOutput, error) {
	record, err := s.store.Get(ctx, imageID)
	if err != nil {
		return nil, err
	}
	return &AnnotationOutput{
		ImageID:        record.ID,
		SessionID:      record.SessionID,
		Reconciliation: record.Reconcile(),
	}, nil
}

// SessionReport строит строки отчёта по всем изображениям сессии
func (s *CountingService) SessionReport(ctx context.Context, sessionID string) ([]entity.ReportRow, error) {
	records, err := s.store.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rows := make([]entity.ReportRow, 0, len(records))
	for _, r := range records {
		rec := r.Reconcile()
		fields := []entity.Field{
			{Name: "final_count", Value: strconv.Itoa(rec.FinalCount)},
			{Name: "manual_added", Value: strconv.Itoa(rec.ManualAddedCount)},
			{Name: "manual_removed", Value: strconv.Itoa(rec.ManualRemovedCount)},
		}
		if r.LastParameters != nil {
			fields = append(fields, r.LastParameters.Fields()...)
		}
		rows = append(rows, entity.ReportRow{Filename: r.Filename, Count: r.LastCount, Fields: fields})
	}
	return rows, nil
}

func (s *CountingService) detect(ctx context.Context, data []byte, params entity.Parameters) (*entity.DetectionResult, error) {
	if s.detector == nil {
		return nil, errors.New("detector is not configured")
	}
	img, err := s.codec.Decode(data)
	if err != nil {
		return nil, err
	}
	return s.detector.Detect(ctx, img, params)
}

func (s *CountingService) publish(event port.Event) {
	if s.events != nil {
		s.events.Publish(event)
	}
}
