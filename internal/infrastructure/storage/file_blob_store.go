package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"colony-counter/internal/domain/entity"
	"colony-counter/internal/domain/port"
)

// FileBlobStore хранит исходные байты изображений файлами в одном каталоге
type FileBlobStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileBlobStore создаёт каталог, если его ещё нет
func NewFileBlobStore(dir string, logger *zap.Logger) (*FileBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileBlobStore{dir: dir, logger: logger}, nil
}

// Dir возвращает каталог хранилища
func (s *FileBlobStore) Dir() string {
	return s.dir
}

// Put записывает байты под именем name
func (s *FileBlobStore) Put(ctx context.Context, name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write blob %s: %w", name, err)
	}
	return nil
}

// Get читает байты по имени
func (s *FileBlobStore) Get(ctx context.Context, name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", name, entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", name, err)
	}
	return data, nil
}

// Delete удаляет файл; отсутствие файла ошибкой не считается
func (s *FileBlobStore) Delete(ctx context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete blob %s: %w", name, err)
	}
	return nil
}

// Cleanup удаляет файлы, оставшиеся от прошлого запуска процесса.
// Метаданные живут только в памяти, поэтому такие файлы ни на что не ссылаются.
// Ошибки отдельных файлов логируются и не прерывают очистку.
func (s *FileBlobStore) Cleanup() int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("failed to list data dir", zap.String("dir", s.dir), zap.Error(err))
		return 0
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn("failed to remove leftover file", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}

	s.logger.Info("data dir cleaned up", zap.String("dir", s.dir), zap.Int("removed", removed))
	return removed
}

func (s *FileBlobStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

// Проверка реализации интерфейса
var _ port.BlobStore = (*FileBlobStore)(nil)
