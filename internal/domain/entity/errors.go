package entity

import "errors"

// Ошибки предметной области. Слои выше оборачивают их через fmt.Errorf("...: %w")
// и проверяют через errors.Is.
var (
	// ErrInvalidParameters набор параметров нарушает правило валидации
	ErrInvalidParameters = errors.New("invalid parameters")
	// ErrDecode байты не удалось разобрать как изображение
	ErrDecode = errors.New("cannot decode image")
	// ErrNotFound сессия или изображение отсутствует в хранилище
	ErrNotFound = errors.New("not found")
	// ErrNoImagesFound пакетный запуск не нашёл ни одного изображения
	ErrNoImagesFound = errors.New("no images found")
	// ErrUnsupportedImage файл имеет неподдерживаемое расширение
	ErrUnsupportedImage = errors.New("unsupported image")
	// ErrInvalidColony ручная аннотация с некорректными координатами
	ErrInvalidColony = errors.New("invalid colony")
	// ErrBackendUnavailable детектор собран без нужного бэкенда
	ErrBackendUnavailable = errors.New("detector backend is not available")
)
