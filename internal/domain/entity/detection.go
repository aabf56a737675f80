package entity

import "image"

// DetectionResult хранит итог одного запуска детектора.
// Создаётся заново на каждый вызов и после этого не меняется.
type DetectionResult struct {
	Count    int         // число колоний, прошедших фильтр площади
	Colonies []Colony    // колонии в порядке обхода контуров
	Mask     *image.Gray // бинарная маска после морфологии (0 или 255)
	Overlay  *image.RGBA // полутоновое изображение с окружностями колоний
}
