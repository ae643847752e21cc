package domain

import (
	"cmp"
	"math"
	"slices"
)

// CosineSimilarity считает косинусное сходство двух гистограмм.
// Для нулевого вектора и для векторов разной длины возвращает 0.
func CosineSimilarity(a, b Fingerprint) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	return max(-1, min(1, sim))
}

// Rank сортирует кандидатов по убыванию сходства с query и возвращает первые k.
// При равных оценках сохраняется исходный порядок кандидатов.
func Rank(query Fingerprint, candidates []Candidate, k int) []Match {
	if k <= 0 {
		k = DefaultTopK
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, Match{
			ProductID: c.ProductID,
			Score:     CosineSimilarity(query, c.Fingerprint),
		})
	}

	slices.SortStableFunc(matches, func(x, y Match) int {
		return cmp.Compare(y.Score, x.Score)
	})

	if len(matches) > k {
		matches = matches[:k]
	}

	return matches
}
