package entity

import (
	"fmt"
	"strconv"
)

// Parameters набор параметров конвейера детекции.
// Значение неизменяемое: методы возвращают копии.
type Parameters struct {
	GlobalThresh       int     `json:"global_thresh" mapstructure:"global_thresh"`
	AdaptiveBlockSize  int     `json:"adaptive_block_size" mapstructure:"adaptive_block_size"`
	AdaptiveC          int     `json:"adaptive_C" mapstructure:"adaptive_c"`
	MorphKernelSize    int     `json:"morph_kernel_size" mapstructure:"morph_kernel_size"`
	OpeningIterations  int     `json:"opening_iterations" mapstructure:"opening_iterations"`
	DilationIterations int     `json:"dilation_iterations" mapstructure:"dilation_iterations"`
	ClosingIterations  int     `json:"closing_iterations" mapstructure:"closing_iterations"`
	MinArea            float64 `json:"min_area" mapstructure:"min_area"`
	MaxArea            float64 `json:"max_area" mapstructure:"max_area"`
	ClaheClipLimit     float64 `json:"clahe_clip_limit" mapstructure:"clahe_clip_limit"`
	ClaheTileGridSize  int     `json:"clahe_tile_grid_size" mapstructure:"clahe_tile_grid_size"`
}

// DefaultParameters возвращает параметры по умолчанию для чашек с мягким агаром.
func DefaultParameters() Parameters {
	return Parameters{
		GlobalThresh:       127,
		AdaptiveBlockSize:  21,
		AdaptiveC:          4,
		MorphKernelSize:    3,
		OpeningIterations:  2,
		DilationIterations: 3,
		ClosingIterations:  6,
		MinArea:            525,
		MaxArea:            15000,
		ClaheClipLimit:     2.0,
		ClaheTileGridSize:  8,
	}
}

// NewParameters проверяет набор и возвращает его с нечётным размером блока.
// Любое нарушение диапазона возвращает ErrInvalidParameters.
func NewParameters(p Parameters) (Parameters, error) {
	if err := p.validate(); err != nil {
		return Parameters{}, err
	}
	p.AdaptiveBlockSize = oddBlockSize(p.AdaptiveBlockSize)
	return p, nil
}

func (p Parameters) validate() error {
	switch {
	case p.GlobalThresh < 0 || p.GlobalThresh > 255:
		return invalidField("global_thresh", "must be in [0, 255]", p.GlobalThresh)
	case p.AdaptiveBlockSize < 3:
		return invalidField("adaptive_block_size", "must be >= 3", p.AdaptiveBlockSize)
	case p.AdaptiveC < 0:
		return invalidField("adaptive_C", "must be >= 0", p.AdaptiveC)
	case p.MorphKernelSize < 1:
		return invalidField("morph_kernel_size", "must be >= 1", p.MorphKernelSize)
	case p.OpeningIterations < 0:
		return invalidField("opening_iterations", "must be >= 0", p.OpeningIterations)
	case p.DilationIterations < 0:
		return invalidField("dilation_iterations", "must be >= 0", p.DilationIterations)
	case p.ClosingIterations < 0:
		return invalidField("closing_iterations", "must be >= 0", p.ClosingIterations)
	case !(p.MinArea >= 1):
		return invalidField("min_area", "must be >= 1", p.MinArea)
	case !(p.MaxArea >= 1):
		return invalidField("max_area", "must be >= 1", p.MaxArea)
	case !(p.ClaheClipLimit > 0):
		return invalidField("clahe_clip_limit", "must be > 0", p.ClaheClipLimit)
	case p.ClaheTileGridSize < 1:
		return invalidField("clahe_tile_grid_size", "must be >= 1", p.ClaheTileGridSize)
	}
	return p.CheckAreaRange()
}

// CheckAreaRange проверяет единственное правило, которое детектор не
// исправляет сам: max_area строго больше min_area.
func (p Parameters) CheckAreaRange() error {
	if !(p.MaxArea > p.MinArea) {
		return fmt.Errorf("%w: max_area must be greater than min_area (min_area=%g, max_area=%g)",
			ErrInvalidParameters, p.MinArea, p.MaxArea)
	}
	return nil
}

// Normalized приводит поля к допустимым диапазонам, не трогая пару площадей.
// Нужен для значений, которые пришли в детектор в обход NewParameters.
func (p Parameters) Normalized() Parameters {
	p.GlobalThresh = min(max(p.GlobalThresh, 0), 255)
	p.AdaptiveBlockSize = oddBlockSize(max(p.AdaptiveBlockSize, 3))
	p.AdaptiveC = max(p.AdaptiveC, 0)
	p.MorphKernelSize = max(p.MorphKernelSize, 1)
	p.OpeningIterations = max(p.OpeningIterations, 0)
	p.DilationIterations = max(p.DilationIterations, 0)
	p.ClosingIterations = max(p.ClosingIterations, 0)
	p.ClaheTileGridSize = max(p.ClaheTileGridSize, 1)
	return p
}

// Field пара имя/значение параметра в стабильном порядке.
type Field struct {
	Name  string
	Value string
}

// Fields возвращает параметры в порядке колонок отчёта.
func (p Parameters) Fields() []Field {
	return []Field{
		{"global_thresh", strconv.Itoa(p.GlobalThresh)},
		{"adaptive_block_size", strconv.Itoa(p.AdaptiveBlockSize)},
		{"adaptive_C", strconv.Itoa(p.AdaptiveC)},
		{"morph_kernel_size", strconv.Itoa(p.MorphKernelSize)},
		{"opening_iterations", strconv.Itoa(p.OpeningIterations)},
		{"dilation_iterations", strconv.Itoa(p.DilationIterations)},
		{"closing_iterations", strconv.Itoa(p.ClosingIterations)},
		{"min_area", formatFloat(p.MinArea)},
		{"max_area", formatFloat(p.MaxArea)},
		{"clahe_clip_limit", formatFloat(p.ClaheClipLimit)},
		{"clahe_tile_grid_size", strconv.Itoa(p.ClaheTileGridSize)},
	}
}

func oddBlockSize(size int) int {
	if size%2 == 0 {
		return size + 1
	}
	return size
}

func invalidField(name, rule string, value any) error {
	return fmt.Errorf("%w: %s %s, got %v", ErrInvalidParameters, name, rule, value)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
