package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"colony-counter/internal/domain/entity"
	"colony-counter/internal/domain/port"
)

const (
	defaultFilename  = "upload"
	defaultExtension = ".bin"
)

// Store собирает таблицу метаданных и хранилище байтов за одним интерфейсом
type Store struct {
	table port.MetadataTable
	blobs port.BlobStore
	newID func() string
}

// NewStore создаёт хранилище записей поверх таблицы и файлового хранилища
func NewStore(table port.MetadataTable, blobs port.BlobStore) *Store {
	return &Store{
		table: table,
		blobs: blobs,
		newID: newHexID,
	}
}

// CreateSession создаёт новую пустую сессию
func (s *Store) CreateSession(ctx context.Context) (string, error) {
	id := s.newID()
	if err := s.table.CreateSession(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

// EnsureSession переиспользует известную сессию, создаёт сессию с
// переданным ID, если её нет, и генерирует новую для пустого ID
func (s *Store) EnsureSession(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return s.CreateSession(ctx)
	}
	exists, err := s.table.HasSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if !exists {
		if err := s.table.CreateSession(ctx, sessionID); err != nil {
			return "", err
		}
	}
	return sessionID, nil
}

// AddImage сохраняет байты под сгенерированным ID и создаёт запись
func (s *Store) AddImage(ctx context.Context, sessionID, filename string, data []byte) (string, error) {
	exists, err := s.table.HasSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("session %s: %w", sessionID, entity.ErrNotFound)
	}

	name := cleanFilename(filename)
	id := s.newID()
	blob := blobName(id, name)
	if err := s.blobs.Put(ctx, blob, data); err != nil {
		return "", err
	}

	if err := s.table.InsertImage(ctx, entity.NewImageRecord(id, sessionID, name)); err != nil {
		_ = s.blobs.Delete(ctx, blob)
		return "", err
	}
	return id, nil
}

// ImageData возвращает исходные байты изображения
func (s *Store) ImageData(ctx context.Context, imageID string) ([]byte, error) {
	record, err := s.table.Get(ctx, imageID)
	if err != nil {
		return nil, err
	}
	return s.blobs.Get(ctx, blobName(record.ID, record.Filename))
}

// SaveDetection заменяет поля автоматической детекции
func (s *Store) SaveDetection(ctx context.Context, imageID string, colonies []entity.Colony, count int, params entity.Parameters) error {
	return s.table.SaveDetection(ctx, imageID, colonies, count, params)
}

// UpdateAnnotations заменяет ручные правки; nil оставляет список как есть
func (s *Store) UpdateAnnotations(ctx context.Context, imageID string, added, removed *[]entity.Colony) error {
	return s.table.UpdateAnnotations(ctx, imageID, added, removed)
}

// Get возвращает копию записи
func (s *Store) Get(ctx context.Context, imageID string) (*entity.ImageRecord, error) {
	return s.table.Get(ctx, imageID)
}

// ListBySession возвращает записи сессии в порядке загрузки
func (s *Store) ListBySession(ctx context.Context, sessionID string) ([]entity.ImageRecord, error) {
	return s.table.ListBySession(ctx, sessionID)
}

func cleanFilename(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return defaultFilename
	}
	return name
}

func blobName(id, filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = defaultExtension
	}
	return id + ext
}

func newHexID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Проверка реализации интерфейса
var _ port.RecordStore = (*Store)(nil)
