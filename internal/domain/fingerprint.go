package domain

import (
	"fmt"
	"math"
)

const (
	// DefaultBins — число корзин на канал RGB по умолчанию (8^3 = 512 измерений).
	DefaultBins = 8
	// DefaultTopK — сколько товаров возвращает поиск по изображению.
	DefaultTopK = 10

	sumTolerance = 1e-6
)

// Fingerprint — нормированная цветовая гистограмма изображения.
// Индекс корзины: r*B*B + g*B + b, компоненты неотрицательны и в сумме дают 1.
type Fingerprint []float64

// Dimension возвращает размерность гистограммы для заданного числа корзин.
func Dimension(bins int) int {
	return bins * bins * bins
}

// Validate проверяет размерность и нормировку гистограммы, прочитанной из хранилища.
func (f Fingerprint) Validate(bins int) error {
	if want := Dimension(bins); len(f) != want {
		return fmt.Errorf("fingerprint has %d components, want %d", len(f), want)
	}

	var sum float64
	for i, v := range f {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("fingerprint component %d is invalid: %v", i, v)
		}
		sum += v
	}

	if math.Abs(sum-1) > sumTolerance {
		return fmt.Errorf("fingerprint sums to %v, want 1", sum)
	}

	return nil
}

// Candidate — товар с сохранённой гистограммой, участвующий в ранжировании.
type Candidate struct {
	ProductID   int64
	Fingerprint Fingerprint
}

// Match — результат ранжирования.
type Match struct {
	ProductID int64
	Score     float64
}
