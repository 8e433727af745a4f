package analysis

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-rhythm/algorithms/novelty"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/rhythm"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/tempo"
	"github.com/RyanBlaney/sonido-rhythm/transcode"
)

const testRate = 8000

// drumLoop returns seconds of audio with a short burst every half second
// starting at 0.25s, i.e. a 120 BPM pulse
func drumLoop(seconds float64) []float64 {
	signal := make([]float64, int(seconds*testRate))
	for t := 0.25; t < seconds; t += 0.5 {
		start := int(math.Round(t * testRate))
		for i := 0; i < 200 && start+i < len(signal); i++ {
			signal[start+i] = math.Sin(float64(i)*1.3) * math.Exp(-float64(i)/60)
		}
	}
	return signal
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.SampleRate = testRate
	cfg.FrameLength = 256
	cfg.HopLength = 80 // 100 novelty frames per second
	cfg.Tempo.Builder.WindowLength = 500
	cfg.Tempo.Estimator.DominantValues = 3
	return cfg
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, novelty.ApproachSpectral, cfg.Novelty.Approach)
	assert.Equal(t, tempo.ApproachFourier, cfg.Tempo.Approach)
	assert.Equal(t, 1.5, cfg.Beat.Alpha)
	assert.Equal(t, 2.0, cfg.Rhythm.Alpha)
	assert.Equal(t, 10.0, cfg.Beat.ToleranceMs)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		field   string
		options []string
	}{
		{"sample rate", func(c *Config) { c.SampleRate = 0 }, "sample_rate", nil},
		{"hop", func(c *Config) { c.HopLength = -1 }, "hop_length", nil},
		{"novelty approach", func(c *Config) { c.Novelty.Approach = "wavelet" }, "novelty.approach", []string{"energy", "spectral"}},
		{"tempo approach", func(c *Config) { c.Tempo.Approach = "comb" }, "tempo.approach", []string{"fourier", "autocorrelation", "hybrid"}},
		{"beat approach", func(c *Config) { c.Beat.Approach = "dp" }, "beat.approach", []string{"score", "penalty"}},
		{"rhythm approach", func(c *Config) { c.Rhythm.Approach = "bars" }, "rhythm.approach", []string{"parts", "chorus-verse"}},
		{"bounds", func(c *Config) { c.Tempo.Estimator.LowerBound = 250 }, "tempo.estimator.lower_bound", nil},
		{"negative bpm", func(c *Config) { c.Tempo.BPM = -4 }, "tempo.bpm", nil},
		{"alpha", func(c *Config) { c.Rhythm.Alpha = 0 }, "rhythm.alpha", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))

			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.field, cerr.Field)
			assert.Equal(t, tt.options, cerr.Options)
			for _, opt := range tt.options {
				assert.Contains(t, err.Error(), opt)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "rhythm.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"hop_length": 256, "tempo": {"approach": "hybrid", "bpm": 96}}`), 0o644))
	cfg, err := LoadConfig(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.HopLength)
	assert.Equal(t, tempo.ApproachHybrid, cfg.Tempo.Approach)
	assert.Equal(t, 96, cfg.Tempo.BPM)
	assert.Equal(t, 2048, cfg.FrameLength, "omitted fields keep defaults")
	assert.Equal(t, 200.0, cfg.Tempo.Estimator.UpperBound)

	yamlPath := filepath.Join(dir, "rhythm.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
duration_seconds: 30
beat:
  approach: penalty
rhythm:
  approach: chorus-verse
  scorer:
    tolerance_ms: 15
peaks:
  window:
    wait: 3
`), 0o644))
	cfg, err = LoadConfig(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 30.0, cfg.DurationSeconds)
	assert.Equal(t, "penalty", string(cfg.Beat.Approach))
	assert.Equal(t, rhythm.ApproachChorusVerse, cfg.Rhythm.Approach)
	assert.Equal(t, 15, cfg.Rhythm.Scorer.ToleranceMs)
	assert.Equal(t, 4, cfg.Rhythm.Scorer.MaxOffsets)
	assert.Equal(t, 3, cfg.Peaks.Window.Wait)
	assert.Equal(t, 5, cfg.Peaks.Window.PreMax)

	badPath := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(badPath, []byte("novelty:\n  approach: wavelet\n"), 0o644))
	_, err = LoadConfig(badPath)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = LoadConfig(filepath.Join(dir, "rhythm.toml"))
	assert.Error(t, err)
	_, err = LoadConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestNoveltyHonoursDuration(t *testing.T) {
	cfg := testConfig()
	cfg.DurationSeconds = 5
	a, err := NewAnalyzer(cfg)
	require.NoError(t, err)

	fn, err := a.Novelty(drumLoop(20), testRate)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, fn.Duration, 1e-9)
	assert.Equal(t, 80, fn.HopLength)

	_, err = a.Novelty(nil, testRate)
	assert.ErrorIs(t, err, ErrNoAudio)
}

func TestTempoOfDrumLoop(t *testing.T) {
	a, err := NewAnalyzer(testConfig())
	require.NoError(t, err)

	fn, err := a.Novelty(drumLoop(20), testRate)
	require.NoError(t, err)

	bpm, err := a.Tempo(fn)
	require.NoError(t, err)
	assert.Equal(t, 120, bpm)
}

func TestTempoOutsideBoundsFails(t *testing.T) {
	cfg := testConfig()
	cfg.Tempo.Estimator.LowerBound = 5000
	cfg.Tempo.Estimator.UpperBound = 6000
	a, err := NewAnalyzer(cfg)
	require.NoError(t, err)

	fn, err := a.Novelty(drumLoop(10), testRate)
	require.NoError(t, err)

	_, err = a.Tempo(fn)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEstimationFailed))
	assert.True(t, errors.Is(err, tempo.ErrNoTempoInRange))
}

func TestFixedTempoSkipsEstimation(t *testing.T) {
	cfg := testConfig()
	cfg.Tempo.BPM = 93
	cfg.Tempo.Estimator.LowerBound = 5000
	cfg.Tempo.Estimator.UpperBound = 6000
	a, err := NewAnalyzer(cfg)
	require.NoError(t, err)

	bpm, err := a.Tempo(nil)
	require.NoError(t, err)
	assert.Equal(t, 93, bpm)
}

func TestStageReportsInvalidApproach(t *testing.T) {
	a, err := NewAnalyzer(testConfig())
	require.NoError(t, err)
	fn, err := a.Novelty(drumLoop(3), testRate)
	require.NoError(t, err)

	a.Config().Tempo.Approach = "comb"
	_, err = a.Tempogram(fn)
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "tempo.approach", cerr.Field)
	assert.Contains(t, err.Error(), "hybrid")

	_, err = NewAnalyzer(&Config{})
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestAnalyzeDrumLoop(t *testing.T) {
	cfg := testConfig()
	cfg.Tempo.BPM = 120
	a, err := NewAnalyzer(cfg)
	require.NoError(t, err)

	res, err := a.Analyze(context.Background(), Input{Samples: drumLoop(20), SampleRate: testRate, Source: "loop"})
	require.NoError(t, err)

	_, err = uuid.Parse(res.ID)
	assert.NoError(t, err)
	assert.Equal(t, "loop", res.Source)
	assert.Equal(t, 120, res.Tempo)
	assert.False(t, res.TempoEstimated)
	assert.InDelta(t, 20.0, res.Duration, 1e-9)
	assert.Equal(t, Approaches{Novelty: "spectral", Tempo: "fourier", Beat: "score", Rhythm: "parts"}, res.Approaches)

	// bursts start at 0.25s, the grid lands within a few frames of them
	assert.GreaterOrEqual(t, res.Phase, 0.0)
	assert.Less(t, res.Phase, 0.5)
	assert.InDelta(t, 0.25, res.Phase, 0.06)
	require.Len(t, res.BeatTimes, 41)
	for i := 1; i < len(res.BeatTimes); i++ {
		assert.InDelta(t, 0.5, res.BeatTimes[i]-res.BeatTimes[i-1], 1e-9)
	}

	candidates := make(map[float64]bool, len(res.RhythmCandidates))
	for _, c := range res.RhythmCandidates {
		candidates[c] = true
	}
	for _, o := range res.RhythmicOnsets {
		assert.True(t, candidates[o], "rhythmic onset %.3f is not a candidate", o)
	}

	matched := 0
	for k := range 40 {
		burst := 0.25 + 0.5*float64(k)
		for _, o := range res.RhythmicOnsets {
			if math.Abs(o-burst) <= 0.06 {
				matched++
				break
			}
		}
	}
	assert.GreaterOrEqual(t, matched, 36)
	assert.NotEmpty(t, res.BeatCandidates)
	require.Len(t, res.Windows, 2)
	assert.NotNil(t, res.Novelty)
}

func TestRhythmicOnsetsWithEnergyPartitions(t *testing.T) {
	cfg := testConfig()
	cfg.Rhythm.Approach = rhythm.ApproachChorusVerse
	cfg.Rhythm.Partition.SegmentSeconds = 2
	a, err := NewAnalyzer(cfg)
	require.NoError(t, err)

	samples := drumLoop(30)
	fn, err := a.Novelty(samples, testRate)
	require.NoError(t, err)
	grid, err := a.BeatGrid(fn, 120)
	require.NoError(t, err)

	onsets, err := a.RhythmicOnsets(context.Background(), fn, samples, 120, grid)
	require.NoError(t, err)
	assert.NotEmpty(t, onsets)
	for i := 1; i < len(onsets); i++ {
		assert.Greater(t, onsets[i], onsets[i-1])
	}
}

func TestAnalyzeAudio(t *testing.T) {
	cfg := testConfig()
	cfg.Tempo.BPM = 120
	a, err := NewAnalyzer(cfg)
	require.NoError(t, err)

	mono := drumLoop(6)
	stereo := make([]float64, 0, 2*len(mono))
	for _, v := range mono {
		stereo = append(stereo, v, v)
	}

	res, err := a.AnalyzeAudio(context.Background(), transcode.NewAudioData(stereo, testRate, 2))
	require.NoError(t, err)
	want, err := a.Analyze(context.Background(), Input{Samples: mono, SampleRate: testRate})
	require.NoError(t, err)
	assert.Equal(t, want.Phase, res.Phase)
	assert.Equal(t, want.RhythmicOnsets, res.RhythmicOnsets)

	_, err = a.AnalyzeAudio(context.Background(), nil)
	assert.Error(t, err)
}

func TestAnalyzeHonoursCancellation(t *testing.T) {
	a, err := NewAnalyzer(testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Analyze(ctx, Input{Samples: drumLoop(3), SampleRate: testRate})
	assert.ErrorIs(t, err, context.Canceled)
}
