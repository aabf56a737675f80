package port

import (
	"context"

	"colony-counter/internal/domain/entity"
)

// RecordStore хранилище сессий и записей изображений
type RecordStore interface {
	// CreateSession создаёт новую пустую сессию
	CreateSession(ctx context.Context) (string, error)

	// EnsureSession возвращает существующую сессию или создаёт её
	EnsureSession(ctx context.Context, sessionID string) (string, error)

	// AddImage сохраняет байты изображения и создаёт запись
	AddImage(ctx context.Context, sessionID, filename string, data []byte) (string, error)

	// ImageData возвращает исходные байты изображения
	ImageData(ctx context.Context, imageID string) ([]byte, error)

	// SaveDetection заменяет поля автоматической детекции целиком
	SaveDetection(ctx context.Context, imageID string, colonies []entity.Colony, count int, params entity.Parameters) error

	// UpdateAnnotations заменяет ручные правки; nil оставляет список как есть
	UpdateAnnotations(ctx context.Context, imageID string, added, removed *[]entity.Colony) error

	// Get возвращает копию записи
	Get(ctx context.Context, imageID string) (*entity.ImageRecord, error)

	// ListBySession возвращает записи сессии в порядке загрузки
	ListBySession(ctx context.Context, sessionID string) ([]entity.ImageRecord, error)
}

// MetadataTable таблица метаданных сессий и записей
type MetadataTable interface {
	CreateSession(ctx context.Context, sessionID string) error
	HasSession(ctx context.Context, sessionID string) (bool, error)
	InsertImage(ctx context.Context, record *entity.ImageRecord) error
	SaveDetection(ctx context.Context, imageID string, colonies []entity.Colony, count int, params entity.Parameters) error
	UpdateAnnotations(ctx context.Context, imageID string, added, removed *[]entity.Colony) error
	Get(ctx context.Context, imageID string) (*entity.ImageRecord, error)
	ListBySession(ctx context.Context, sessionID string) ([]entity.ImageRecord, error)
}

// BlobStore хранилище исходных байтов изображений
type BlobStore interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
}
