package domain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomFingerprint(rng *rand.Rand, dim int) Fingerprint {
	f := make(Fingerprint, dim)
	var sum float64
	for i := range f {
		f[i] = rng.Float64()
		sum += f[i]
	}
	for i := range f {
		f[i] /= sum
	}
	return f
}

func onehot(dim, idx int) Fingerprint {
	f := make(Fingerprint, dim)
	f[idx] = 1
	return f
}

func TestCosineSimilarity(t *testing.T) {
	dim := Dimension(DefaultBins)

	t.Run("self similarity is one", func(t *testing.T) {
		rng := rand.New(rand.NewSource(1))
		for range 20 {
			a := randomFingerprint(rng, dim)
			assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-9)
		}
	})

	t.Run("zero vector yields zero", func(t *testing.T) {
		zero := make(Fingerprint, dim)
		a := onehot(dim, 3)
		assert.Equal(t, 0.0, CosineSimilarity(zero, a))
		assert.Equal(t, 0.0, CosineSimilarity(a, zero))
		assert.Equal(t, 0.0, CosineSimilarity(zero, zero))
	})

	t.Run("disjoint histograms are orthogonal", func(t *testing.T) {
		assert.Equal(t, 0.0, CosineSimilarity(onehot(dim, 0), onehot(dim, 511)))
	})

	t.Run("length mismatch yields zero", func(t *testing.T) {
		assert.Equal(t, 0.0, CosineSimilarity(onehot(8, 1), onehot(dim, 1)))
	})

	t.Run("bounds hold for arbitrary vectors", func(t *testing.T) {
		rng := rand.New(rand.NewSource(2))
		for range 200 {
			a := make(Fingerprint, 16)
			b := make(Fingerprint, 16)
			for i := range a {
				a[i] = rng.NormFloat64()
				b[i] = rng.NormFloat64()
			}
			sim := CosineSimilarity(a, b)
			assert.GreaterOrEqual(t, sim, -1.0)
			assert.LessOrEqual(t, sim, 1.0)
		}
		neg := Fingerprint{-1, -2, -3}
		assert.InDelta(t, -1.0, CosineSimilarity(Fingerprint{1, 2, 3}, neg), 1e-12)
	})
}

func TestRank(t *testing.T) {
	dim := Dimension(DefaultBins)

	t.Run("empty candidate list", func(t *testing.T) {
		res := Rank(onehot(dim, 0), nil, 10)
		require.NotNil(t, res)
		assert.Empty(t, res)
	})

	t.Run("identical fingerprint ranks first", func(t *testing.T) {
		rng := rand.New(rand.NewSource(3))
		query := randomFingerprint(rng, dim)

		candidates := []Candidate{
			{ProductID: 1, Fingerprint: onehot(dim, 10)},
			{ProductID: 2, Fingerprint: randomFingerprint(rng, dim)},
			{ProductID: 3, Fingerprint: append(Fingerprint(nil), query...)},
			{ProductID: 4, Fingerprint: make(Fingerprint, dim)},
		}

		res := Rank(query, candidates, 10)
		require.Len(t, res, 4)
		assert.Equal(t, int64(3), res[0].ProductID)
		assert.InDelta(t, 1.0, res[0].Score, 1e-9)
		assert.Equal(t, int64(4), res[len(res)-1].ProductID)
		assert.Equal(t, 0.0, res[len(res)-1].Score)
	})

	t.Run("output is non-increasing and truncated to k", func(t *testing.T) {
		rng := rand.New(rand.NewSource(4))
		query := randomFingerprint(rng, dim)

		for _, n := range []int{0, 1, 5, 10, 11, 37} {
			candidates := make([]Candidate, n)
			for i := range candidates {
				candidates[i] = Candidate{ProductID: int64(i), Fingerprint: randomFingerprint(rng, dim)}
			}

			res := Rank(query, candidates, 10)
			assert.Len(t, res, min(n, 10))
			for i := 1; i < len(res); i++ {
				assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
			}
		}
	})

	t.Run("ties keep input order", func(t *testing.T) {
		f := onehot(dim, 7)
		candidates := []Candidate{
			{ProductID: 30, Fingerprint: f},
			{ProductID: 10, Fingerprint: f},
			{ProductID: 20, Fingerprint: f},
		}

		res := Rank(f, candidates, 10)
		require.Len(t, res, 3)
		assert.Equal(t, []int64{30, 10, 20}, []int64{res[0].ProductID, res[1].ProductID, res[2].ProductID})
	})

	t.Run("non-positive k falls back to default", func(t *testing.T) {
		candidates := make([]Candidate, 15)
		for i := range candidates {
			candidates[i] = Candidate{ProductID: int64(i), Fingerprint: onehot(dim, i)}
		}
		assert.Len(t, Rank(onehot(dim, 0), candidates, 0), DefaultTopK)
	})
}
