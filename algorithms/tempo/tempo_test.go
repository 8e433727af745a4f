package tempo

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-rhythm/algorithms/novelty"
)

// 44.1kHz with a 441-sample hop gives 100 novelty frames per second
const (
	testRate = 44100
	testHop  = 441
)

func testBuilderConfig() BuilderConfig {
	return BuilderConfig{WindowLength: 500, Hop: 1, Gamma: 5}
}

func testEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{Similarity: 5, DominantValues: 3, LowerBound: 40, UpperBound: 200}
}

// impulses every 50 frames (0.5s, 120 BPM) over 10 seconds, scaled by gain
func impulseNovelty(gain float64, offset int) *novelty.Function {
	values := make([]float64, 1000)
	for i := offset; i < len(values); i += 50 {
		values[i] = gain
	}
	return novelty.NewFunction(values, testRate, 2048, testHop, 10)
}

func TestNewBuilderRejectsUnknownApproach(t *testing.T) {
	_, err := NewBuilder("wavelet", testBuilderConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidApproach))
	for _, a := range Approaches {
		assert.Contains(t, err.Error(), string(a))
	}

	_, err = NewBuilder(ApproachFourier, BuilderConfig{WindowLength: 1})
	assert.Error(t, err)
}

func TestFourierTempogramShape(t *testing.T) {
	tg, err := NewFourier(testBuilderConfig()).Build(impulseNovelty(1, 0))
	require.NoError(t, err)

	assert.Equal(t, 1001, tg.NumFrames())
	assert.Equal(t, 501, tg.NumBins())
	assert.InDelta(t, 6.0, tg.BPM[1], 1e-9)
	assert.InDelta(t, 120.0, tg.BPM[20], 1e-9)
	assert.InDelta(t, 100.0, tg.FrameRate, 1e-9)
	assert.Len(t, tg.Profile(), 501)
}

func TestAutocorrelationTempogramShape(t *testing.T) {
	tg, err := NewAutocorrelation(testBuilderConfig()).Build(impulseNovelty(1, 0))
	require.NoError(t, err)

	assert.Equal(t, 1001, tg.NumFrames())
	assert.Equal(t, 499, tg.NumBins())
	assert.InDelta(t, 6000.0, tg.BPM[0], 1e-9)
	assert.InDelta(t, 120.0, tg.BPM[49], 1e-9)
	for _, row := range tg.Strength {
		require.Len(t, row, 499)
		for _, v := range row {
			assert.LessOrEqual(t, v, 1+1e-9)
		}
	}
}

func TestHybridTempogramAlignsWithFourierLabels(t *testing.T) {
	fn := impulseNovelty(1, 0)

	hybrid, err := NewHybrid(testBuilderConfig()).Build(fn)
	require.NoError(t, err)
	fourier, err := NewFourier(testBuilderConfig()).Build(fn)
	require.NoError(t, err)

	assert.Equal(t, fourier.NumFrames(), hybrid.NumFrames())
	require.Equal(t, 499, hybrid.NumBins())
	assert.Equal(t, fourier.BPM[1:500], hybrid.BPM)
	for _, row := range hybrid.Strength {
		for _, v := range row {
			assert.GreaterOrEqual(t, v, 0.0)
		}
	}
}

func TestEstimateImpulseTrain(t *testing.T) {
	for _, approach := range []Approach{ApproachFourier, ApproachAutocorrelation} {
		t.Run(string(approach), func(t *testing.T) {
			builder, err := NewBuilder(approach, testBuilderConfig())
			require.NoError(t, err)

			tg, err := builder.Build(impulseNovelty(1, 0))
			require.NoError(t, err)

			tempo, err := NewEstimator(testEstimatorConfig()).Estimate(tg)
			require.NoError(t, err)
			assert.Equal(t, 120, tempo)
		})
	}
}

func TestEstimateIsScaleInvariant(t *testing.T) {
	for _, approach := range []Approach{ApproachFourier, ApproachAutocorrelation} {
		t.Run(string(approach), func(t *testing.T) {
			builder, err := NewBuilder(approach, testBuilderConfig())
			require.NoError(t, err)
			estimator := NewEstimator(testEstimatorConfig())

			var tempos []int
			for _, gain := range []float64{1, 0.25, 3.7} {
				tg, err := builder.Build(impulseNovelty(gain, 7))
				require.NoError(t, err)
				tempo, err := estimator.Estimate(tg)
				require.NoError(t, err)
				tempos = append(tempos, tempo)
			}
			assert.Equal(t, []int{120, 120, 120}, tempos)
		})
	}
}

// Estimates of the 120 BPM impulse train with the default estimator. The
// hybrid pairs Fourier bin k with autocorrelation lag k, which describe
// different tempi, so on a pure impulse train it lands off the true tempo.
// A short autocorrelation window needs fewer dominant values to stay on 120.
func TestEstimateWithDefaultSettings(t *testing.T) {
	tests := []struct {
		approach     Approach
		windowLength int
		want         int
	}{
		{ApproachFourier, 2048, 120},
		{ApproachAutocorrelation, 2048, 120},
		{ApproachHybrid, 2048, 146},
		{ApproachFourier, 500, 120},
		{ApproachAutocorrelation, 500, 41},
		{ApproachHybrid, 500, 126},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.approach, tt.windowLength), func(t *testing.T) {
			config := DefaultBuilderConfig()
			config.WindowLength = tt.windowLength
			builder, err := NewBuilder(tt.approach, config)
			require.NoError(t, err)

			tg, err := builder.Build(impulseNovelty(1, 0))
			require.NoError(t, err)

			tempo, err := NewEstimator(DefaultEstimatorConfig()).Estimate(tg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tempo)
		})
	}
}

func TestEstimateFailsOutsideBounds(t *testing.T) {
	tg, err := NewFourier(testBuilderConfig()).Build(impulseNovelty(1, 0))
	require.NoError(t, err)

	_, err = NewEstimator(EstimatorConfig{Similarity: 5, DominantValues: 5, LowerBound: 1000.5, UpperBound: 1000.7}).Estimate(tg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoTempoInRange))

	_, err = NewEstimator(EstimatorConfig{Similarity: 5, DominantValues: 5, LowerBound: 200, UpperBound: 40}).Estimate(tg)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoTempoInRange))
}

func TestCandidatesExtractEachBinOnce(t *testing.T) {
	tg := &Tempogram{
		Strength: [][]float64{
			{5, 1, 9, 3, 9, 0},
			{5, 1, 0, 3, 0, 0},
		},
		BPM: []float64{30, 60, 90, 120, 150, 300},
	}

	got, err := NewEstimator(EstimatorConfig{Similarity: 5, DominantValues: 2, LowerBound: 40, UpperBound: 200}).Candidates(tg)
	require.NoError(t, err)
	// profile 10,2,9,6,9,0: round one takes 30 (out of range) and 90,
	// round two takes 150 then 120
	assert.Equal(t, []float64{90, 150, 120}, got)
}

func TestGroupCandidates(t *testing.T) {
	assert.Equal(t, [][]int{{0, 2}, {1, 2}}, GroupCandidates([]float64{100, 110, 105}, 5))
	assert.Equal(t, [][]int{{0}, {1}}, GroupCandidates([]float64{100, 106}, 5))
	assert.Empty(t, GroupCandidates(nil, 5))
}

func TestGroupCandidatesSharesGroupForSimilarPairs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for range 50 {
		candidates := make([]float64, 12)
		for i := range candidates {
			candidates[i] = 40 + rng.Float64()*160
		}
		groups := GroupCandidates(candidates, 5)

		membership := make([]map[int]bool, len(candidates))
		for i := range membership {
			membership[i] = map[int]bool{}
		}
		for g, members := range groups {
			for _, m := range members {
				membership[m][g] = true
			}
		}

		for i := range candidates {
			require.NotEmpty(t, membership[i])
			for j := i + 1; j < len(candidates); j++ {
				if candidates[i]-candidates[j] > 5 || candidates[j]-candidates[i] > 5 {
					continue
				}
				shared := false
				for g := range membership[i] {
					shared = shared || membership[j][g]
				}
				assert.True(t, shared, "%.2f and %.2f share no group", candidates[i], candidates[j])
			}
		}
	}
}

func TestDominantBPM(t *testing.T) {
	tests := []struct {
		name       string
		candidates []float64
		want       int
	}{
		{"single", []float64{128}, 128},
		{"weighted group", []float64{120, 118, 60, 121}, 119},
		{"heavier later group", []float64{90, 140, 141, 139}, 140},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DominantBPM(tt.candidates, 5))
		})
	}
}
