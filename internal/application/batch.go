package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"colony-counter/internal/domain/entity"
	"colony-counter/internal/domain/port"
)

// BatchService считает колонии во всех изображениях файла или каталога
type BatchService struct {
	detector port.ColonyDetector
	codec    port.ImageCodec
	workers  int
	logger   *zap.Logger
}

func NewBatchService(detector port.ColonyDetector, codec port.ImageCodec, workers int, logger *zap.Logger) *BatchService {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{
		detector: detector,
		codec:    codec,
		workers:  workers,
		logger:   logger,
	}
}

// Collect возвращает отсортированный список изображений под root.
// Файл должен иметь поддерживаемое расширение; каталог обходится
// рекурсивно только при recursive.
func (s *BatchService) Collect(root string, recursive bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("input path %s: %w", root, entity.ErrNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}

	if !info.IsDir() {
		if !entity.IsSupportedImage(root) {
			return nil, fmt.Errorf("%w: %s", entity.ErrUnsupportedImage, root)
		}
		return []string{root}, nil
	}

	var paths []string
	if recursive {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && entity.IsSupportedImage(path) {
				paths = append(paths, path)
			}
			return nil
		})
	} else {
		var entries []os.DirEntry
		entries, err = os.ReadDir(root)
		for _, e := range entries {
			if !e.IsDir() && entity.IsSupportedImage(e.Name()) {
				paths = append(paths, filepath.Join(root, e.Name()))
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", entity.ErrNoImagesFound, root)
	}
	sort.Strings(paths)
	return paths, nil
}

// Run считает колонии во всех найденных изображениях. Строки идут в порядке
// Collect; первая ошибка прерывает весь прогон.
func (s *BatchService) Run(ctx context.Context, root string, recursive bool, params entity.Parameters) ([]entity.ReportRow, error) {
	params, err := entity.NewParameters(params)
	if err != nil {
		return nil, err
	}

	paths, err := s.Collect(root, recursive)
	if err != nil {
		return nil, err
	}

	base := root
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		base = ""
	}

	rows := make([]entity.ReportRow, len(paths))
	errs := make([]error, len(paths))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(s.workers, len(paths)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				row, err := s.countOne(ctx, base, paths[i], params)
				if err != nil {
					errs[i] = err
					cancel()
					continue
				}
				rows[i] = row
			}
		}()
	}

feed:
	for i := range paths {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			return nil, err
		}
	}
	// воркеры не упали, значит отменил вызывающий
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.logger.Info("batch finished", zap.String("root", root), zap.Int("images", len(rows)))
	return rows, nil
}

func (s *BatchService) countOne(ctx context.Context, base, path string, params entity.Parameters) (entity.ReportRow, error) {
	if err := ctx.Err(); err != nil {
		return entity.ReportRow{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return entity.ReportRow{}, fmt.Errorf("read %s: %w", path, err)
	}
	img, err := s.codec.Decode(data)
	if err != nil {
		return entity.ReportRow{}, fmt.Errorf("%s: %w", path, err)
	}
	result, err := s.detector.Detect(ctx, img, params)
	if err != nil {
		return entity.ReportRow{}, fmt.Errorf("%s: %w", path, err)
	}

	s.logger.Debug("image counted", zap.String("path", path), zap.Int("count", result.Count))
	return entity.NewReportRow(rowName(base, path), result.Count, params), nil
}

func rowName(base, path string) string {
	if base == "" {
		return filepath.Base(path)
	}
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}
