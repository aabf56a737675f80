package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"colony-counter/internal/domain/entity"
	"colony-counter/internal/domain/port"
)

// MemoryRecordTable in-memory таблица сессий и записей.
// Все операции, включая перечисление сессии, идут под одной блокировкой.
type MemoryRecordTable struct {
	mu       sync.Mutex
	sessions map[string]*entity.Session
	records  map[string]*entity.ImageRecord
}

// NewMemoryRecordTable создаёт пустую таблицу
func NewMemoryRecordTable() *MemoryRecordTable {
	return &MemoryRecordTable{
		sessions: make(map[string]*entity.Session),
		records:  make(map[string]*entity.ImageRecord),
	}
}

// CreateSession регистрирует сессию; повторная регистрация ничего не меняет
func (t *MemoryRecordTable) CreateSession(ctx context.Context, sessionID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.sessions[sessionID]; !exists {
		t.sessions[sessionID] = &entity.Session{ID: sessionID, CreatedAt: time.Now().UTC()}
	}
	return nil
}

// HasSession проверяет наличие сессии
func (t *MemoryRecordTable) HasSession(ctx context.Context, sessionID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, exists := t.sessions[sessionID]
	return exists, nil
}

// InsertImage добавляет запись в конец сессии
func (t *MemoryRecordTable) InsertImage(ctx context.Context, record *entity.ImageRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, exists := t.sessions[record.SessionID]
	if !exists {
		return fmt.Errorf("session %s: %w", record.SessionID, entity.ErrNotFound)
	}
	if _, dup := t.records[record.ID]; dup {
		return fmt.Errorf("image %s already exists", record.ID)
	}

	t.records[record.ID] = record.Clone()
	session.ImageIDs = append(session.ImageIDs, record.ID)
	return nil
}

// SaveDetection заменяет колонии, счёт и параметры одним шагом
func (t *MemoryRecordTable) SaveDetection(ctx context.Context, imageID string, colonies []entity.Colony, count int, params entity.Parameters) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, err := t.lookup(imageID)
	if err != nil {
		return err
	}
	record.AutoColonies = entity.CloneColonies(colonies)
	record.LastCount = count
	record.LastParameters = &params
	return nil
}

// UpdateAnnotations заменяет переданные списки ручных правок
func (t *MemoryRecordTable) UpdateAnnotations(ctx context.Context, imageID string, added, removed *[]entity.Colony) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, err := t.lookup(imageID)
	if err != nil {
		return err
	}
	if added != nil {
		record.ManualAdded = entity.CloneColonies(*added)
	}
	if removed != nil {
		record.ManualRemoved = entity.CloneColonies(*removed)
	}
	return nil
}

// Get возвращает копию записи
func (t *MemoryRecordTable) Get(ctx context.Context, imageID string) (*entity.ImageRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, err := t.lookup(imageID)
	if err != nil {
		return nil, err
	}
	return record.Clone(), nil
}

// ListBySession возвращает копии записей в порядке добавления
func (t *MemoryRecordTable) ListBySession(ctx context.Context, sessionID string) ([]entity.ImageRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, exists := t.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("session %s: %w", sessionID, entity.ErrNotFound)
	}

	records := make([]entity.ImageRecord, 0, len(session.ImageIDs))
	for _, id := range session.ImageIDs {
		if record, ok := t.records[id]; ok {
			records = append(records, *record.Clone())
		}
	}
	return records, nil
}

func (t *MemoryRecordTable) lookup(imageID string) (*entity.ImageRecord, error) {
	record, exists := t.records[imageID]
	if !exists {
		return nil, fmt.Errorf("image %s: %w", imageID, entity.ErrNotFound)
	}
	return record, nil
}

// Проверка реализации интерфейса
var _ port.MetadataTable = (*MemoryRecordTable)(nil)
