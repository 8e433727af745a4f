package common

import (
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	signal := []float64{-2, 1, 0.5}

	assert.Equal(t, []float64{-1, 0.5, 0.25}, NewNormalizer(Peak).Normalize(signal))
	assert.InDeltaSlice(t, []float64{0, 1, 2.5 / 3}, NewNormalizer(MinMax).Normalize(signal), 1e-12)
	assert.Equal(t, []float64{-2, 1, 0.5}, signal, "input must not change")

	z := NewNormalizer(ZScore).Normalize([]float64{1, 3})
	assert.Equal(t, []float64{-1, 1}, z)

	silent := []float64{0, 0}
	assert.Equal(t, silent, NewNormalizer(Peak).Normalize(silent))
	assert.Equal(t, []float64{4, 4}, NewNormalizer(MinMax).Normalize([]float64{4, 4}))
	assert.Empty(t, NewNormalizer(Peak).Normalize(nil))
}

func TestNormalizeDB(t *testing.T) {
	out := NewNormalizer(Peak).NormalizeDB([]float64{0.1, -0.4}, -6)
	assert.InDelta(t, -math.Pow(10, -6.0/20), out[1], 1e-12)
	assert.InDelta(t, out[1]/-4, out[0], 1e-12)
}

func TestMix(t *testing.T) {
	assert.Equal(t, []float64{1, 2.5, 1}, Mix([]float64{1, 2}, []float64{0, 1, 2}, 0.5))
	assert.Equal(t, []float64{1, 2}, Mix([]float64{1, 2}, nil, 1))
}

func TestForEachVisitsEveryIndexOnce(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 64} {
		seen := make([]int32, 97)
		var created atomic.Int32
		ForEach(len(seen), workers, func() func(int) {
			created.Add(1)
			return func(i int) { atomic.AddInt32(&seen[i], 1) }
		})
		for i, n := range seen {
			assert.Equal(t, int32(1), n, "workers %d index %d", workers, i)
		}
		assert.LessOrEqual(t, int(created.Load()), len(seen))
	}

	ForEach(0, 4, func() func(int) {
		t.Fatal("no workers expected for an empty range")
		return nil
	})
}
