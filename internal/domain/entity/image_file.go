package entity

import (
	"path/filepath"
	"strings"
)

// SupportedExtensions расширения файлов, которые считаются изображениями
var SupportedExtensions = []string{".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp"}

// IsSupportedImage сравнивает расширение без учёта регистра
func IsSupportedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}
