package entity

import (
	"fmt"
	"math"
)

// Colony описывает найденную (или отмеченную вручную) колонию.
type Colony struct {
	X      float64 `json:"x"`      // центр ограничивающего прямоугольника по X
	Y      float64 `json:"y"`      // центр ограничивающего прямоугольника по Y
	Radius float64 `json:"radius"` // половина большей стороны прямоугольника
}

// ColonyFromRect строит колонию по ограничивающему прямоугольнику области.
func ColonyFromRect(x, y, width, height int) Colony {
	return Colony{
		X:      float64(x) + float64(width)/2,
		Y:      float64(y) + float64(height)/2,
		Radius: float64(max(width, height)) / 2,
	}
}

// Validate проверяет аннотацию, пришедшую извне.
func (c Colony) Validate() error {
	for _, v := range []float64{c.X, c.Y, c.Radius} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value", ErrInvalidColony)
		}
	}
	if c.Radius < 0 {
		return fmt.Errorf("%w: radius must be >= 0, got %g", ErrInvalidColony, c.Radius)
	}
	return nil
}

// ValidateColonies проверяет список аннотаций.
func ValidateColonies(colonies []Colony) error {
	for i, c := range colonies {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("colony %d: %w", i, err)
		}
	}
	return nil
}

// CloneColonies копирует список, чтобы хранилище не делило память с вызывающим.
func CloneColonies(colonies []Colony) []Colony {
	if colonies == nil {
		return nil
	}
	out := make([]Colony, len(colonies))
	copy(out, colonies)
	return out
}
