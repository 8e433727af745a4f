// Package analysis chains the rhythm stages into one pipeline: novelty
// function, tempo, beat phase and rhythmic onsets.
package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-rhythm/algorithms/beat"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/novelty"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/peaks"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/rhythm"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/tempo"
	"github.com/RyanBlaney/sonido-rhythm/logging"
	"github.com/RyanBlaney/sonido-rhythm/transcode"
)

// Input is mono audio to analyse
type Input struct {
	Samples    []float64
	SampleRate int
	Source     string // file name or other label, informational
}

// Analyzer runs the rhythm pipeline. Stage methods are independent and can be
// called on their own; Analyze runs them in sequence.
type Analyzer struct {
	config *Config
	logger logging.Logger
}

// NewAnalyzer validates config and creates an analyzer. A nil config uses
// DefaultConfig.
func NewAnalyzer(config *Config) (*Analyzer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{
		config: config,
		logger: logging.WithFields(logging.Fields{"component": "rhythm_analyzer"}),
	}, nil
}

// Config returns the analyzer configuration
func (a *Analyzer) Config() *Config {
	return a.config
}

// Novelty computes the novelty function of mono samples. The samples are cut
// to DurationSeconds when it is set.
func (a *Analyzer) Novelty(samples []float64, sampleRate int) (*novelty.Function, error) {
	if len(samples) == 0 {
		return nil, ErrNoAudio
	}
	if sampleRate <= 0 {
		sampleRate = a.config.SampleRate
	}
	samples = a.truncate(samples, sampleRate)
	duration := float64(len(samples)) / float64(sampleRate)

	calc, err := novelty.NewCalculator(a.config.Novelty.Approach, novelty.Params{
		SampleRate:          sampleRate,
		FrameLength:         a.config.FrameLength,
		HopLength:           a.config.HopLength,
		Gamma:               a.config.Novelty.Gamma,
		NeighborhoodSeconds: a.config.Novelty.NeighborhoodSeconds,
	})
	if err != nil {
		return nil, approachError("novelty.approach", a.config.Novelty.Approach, novelty.Approaches, err)
	}

	fn, err := calc.Compute(samples, duration)
	if err != nil {
		return nil, fmt.Errorf("failed to compute %s novelty: %w", calc.Name(), err)
	}

	a.logger.Debug("Computed novelty function", logging.Fields{
		"approach":   calc.Name(),
		"frames":     fn.Len(),
		"duration":   fn.Duration,
		"frame_rate": fn.FrameRate(),
	})
	return fn, nil
}

func (a *Analyzer) truncate(samples []float64, sampleRate int) []float64 {
	if a.config.DurationSeconds <= 0 {
		return samples
	}
	n := int(a.config.DurationSeconds * float64(sampleRate))
	if n < len(samples) {
		return samples[:n]
	}
	return samples
}

// Tempogram builds the tempo strength representation of fn
func (a *Analyzer) Tempogram(fn *novelty.Function) (*tempo.Tempogram, error) {
	builder, err := tempo.NewBuilder(a.config.Tempo.Approach, a.config.Tempo.Builder)
	if err != nil {
		return nil, approachError("tempo.approach", a.config.Tempo.Approach, tempo.Approaches, err)
	}
	tg, err := builder.Build(fn)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s tempogram: %w", builder.Name(), err)
	}
	return tg, nil
}

// Tempo returns the configured BPM when one is fixed, otherwise the
// dominant tempo of fn
func (a *Analyzer) Tempo(fn *novelty.Function) (int, error) {
	if a.config.Tempo.BPM > 0 {
		return a.config.Tempo.BPM, nil
	}

	tg, err := a.Tempogram(fn)
	if err != nil {
		return 0, err
	}

	bpm, err := tempo.NewEstimator(a.config.Tempo.Estimator).Estimate(tg)
	if err != nil {
		if errors.Is(err, tempo.ErrNoTempoInRange) {
			return 0, fmt.Errorf("%w: %w", ErrEstimationFailed, err)
		}
		return 0, err
	}

	a.logger.Debug("Estimated tempo", logging.Fields{
		"approach": a.config.Tempo.Approach,
		"bpm":      bpm,
	})
	return bpm, nil
}

func (a *Analyzer) candidates(fn *novelty.Function, bpm int, alpha float64) peaks.CandidateSet {
	picker := peaks.NewPicker(a.config.Peaks)
	return picker.PickCandidates(fn, peaks.MinPeakCount(bpm, fn.Duration, alpha))
}

// BeatCandidates picks the onset candidates used for beat tracking
func (a *Analyzer) BeatCandidates(fn *novelty.Function, bpm int) peaks.CandidateSet {
	return a.candidates(fn, bpm, a.config.Beat.Alpha)
}

// BeatPhase returns the shift in seconds of the beat grid at bpm
func (a *Analyzer) BeatPhase(fn *novelty.Function, bpm int) (float64, error) {
	phase, _, err := a.beatPhase(fn, bpm)
	return phase, err
}

func (a *Analyzer) beatPhase(fn *novelty.Function, bpm int) (float64, peaks.CandidateSet, error) {
	if bpm <= 0 {
		return 0, nil, fmt.Errorf("tempo must be positive, got %d", bpm)
	}
	scorer, err := beat.NewScorer(a.config.Beat.Approach, a.config.Beat.ToleranceMs)
	if err != nil {
		return 0, nil, approachError("beat.approach", a.config.Beat.Approach, beat.Approaches, err)
	}

	cands := a.BeatCandidates(fn, bpm)
	phase, err := beat.NewPhaseEstimator(a.config.Workers).Estimate(cands.Times(), bpm, fn.Duration, scorer)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to estimate beat phase: %w", err)
	}

	a.logger.Debug("Estimated beat phase", logging.Fields{
		"approach":   scorer.Name(),
		"candidates": len(cands),
		"phase":      phase,
	})
	return phase, cands, nil
}

// BeatGrid returns the beat times of fn at bpm
func (a *Analyzer) BeatGrid(fn *novelty.Function, bpm int) ([]float64, error) {
	phase, err := a.BeatPhase(fn, bpm)
	if err != nil {
		return nil, err
	}
	return beat.Grid(bpm, fn.Duration, phase), nil
}

// RhythmCandidates picks the onset candidates used for rhythm tracking
func (a *Analyzer) RhythmCandidates(fn *novelty.Function, bpm int) peaks.CandidateSet {
	return a.candidates(fn, bpm, a.config.Rhythm.Alpha)
}

// RhythmicOnsets returns the onsets of fn that recur at a consistent offset
// from grid. samples are only read by the chorus-verse partitioning.
func (a *Analyzer) RhythmicOnsets(ctx context.Context, fn *novelty.Function, samples []float64, bpm int, grid []float64) ([]float64, error) {
	results, _, err := a.rhythmWindows(ctx, fn, samples, bpm, grid)
	if err != nil {
		return nil, err
	}
	onsets := make([]float64, 0)
	for _, r := range results {
		onsets = append(onsets, r.Onsets...)
	}
	return onsets, nil
}

func (a *Analyzer) rhythmWindows(ctx context.Context, fn *novelty.Function, samples []float64, bpm int, grid []float64) ([]rhythm.WindowResult, peaks.CandidateSet, error) {
	if bpm <= 0 {
		return nil, nil, fmt.Errorf("tempo must be positive, got %d", bpm)
	}
	strategy, err := rhythm.NewPartitionStrategy(a.config.Rhythm.Approach, a.config.Rhythm.Partition,
		a.truncate(samples, fn.SampleRate), fn.SampleRate, fn.HopLength)
	if err != nil {
		return nil, nil, approachError("rhythm.approach", a.config.Rhythm.Approach, rhythm.Approaches, err)
	}

	windows, err := strategy.Windows(fn.Duration)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to partition song: %w", err)
	}

	scorerConfig := a.config.Rhythm.Scorer
	if scorerConfig.Workers == 0 {
		scorerConfig.Workers = a.config.Workers
	}

	cands := a.RhythmCandidates(fn, bpm)
	results, err := rhythm.NewScorer(scorerConfig).ScoreWindows(ctx, cands.Times(), grid, bpm, windows)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to score rhythm windows: %w", err)
	}

	a.logger.Debug("Scored rhythm", logging.Fields{
		"approach":   strategy.Name(),
		"windows":    len(windows),
		"candidates": len(cands),
	})
	return results, cands, nil
}

// Analyze runs the full pipeline on in
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*Result, error) {
	logger := a.logger.WithContext(ctx).WithFields(logging.Fields{
		"function":    "Analyze",
		"source":      in.Source,
		"sample_rate": in.SampleRate,
		"samples":     len(in.Samples),
	})
	logger.Debug("Starting rhythm analysis")

	fn, err := a.Novelty(in.Samples, in.SampleRate)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bpm, err := a.Tempo(fn)
	if err != nil {
		logger.Error(err, "Failed to estimate tempo")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	phase, beatCands, err := a.beatPhase(fn, bpm)
	if err != nil {
		return nil, err
	}
	grid := beat.Grid(bpm, fn.Duration, phase)

	windows, rhythmCands, err := a.rhythmWindows(ctx, fn, in.Samples, bpm, grid)
	if err != nil {
		return nil, err
	}

	result := newResult(in.Source, a.config)
	result.Tempo = bpm
	result.TempoEstimated = a.config.Tempo.BPM <= 0
	result.Phase = phase
	result.BeatTimes = grid
	result.BeatCandidates = beatCands.Times()
	result.RhythmCandidates = rhythmCands.Times()
	result.Windows = windows
	result.RhythmicOnsets = make([]float64, 0)
	for _, w := range windows {
		result.RhythmicOnsets = append(result.RhythmicOnsets, w.Onsets...)
	}
	result.Duration = fn.Duration
	result.SampleRate = fn.SampleRate
	result.Novelty = fn

	logger.Debug("Rhythm analysis completed", logging.Fields{
		"result_id":       result.ID,
		"tempo":           result.Tempo,
		"phase":           result.Phase,
		"beats":           len(result.BeatTimes),
		"rhythmic_onsets": len(result.RhythmicOnsets),
	})
	return result, nil
}

// AnalyzeAudio downmixes decoded audio to mono and analyses it
func (a *Analyzer) AnalyzeAudio(ctx context.Context, audioData *transcode.AudioData) (*Result, error) {
	if audioData == nil {
		return nil, fmt.Errorf("audio data cannot be nil")
	}
	if audioData.SampleRate != a.config.SampleRate {
		a.logger.Debug("Audio sample rate differs from configuration, using the audio rate", logging.Fields{
			"audio_sample_rate":  audioData.SampleRate,
			"config_sample_rate": a.config.SampleRate,
		})
	}

	mono := audioData.Mono()
	return a.Analyze(ctx, Input{Samples: mono.PCM, SampleRate: mono.SampleRate})
}

// approachError turns a stage's invalid-approach error into a *ConfigError
func approachError[T ~string](field string, value T, valid []T, err error) error {
	if errors.Is(err, novelty.ErrInvalidApproach) || errors.Is(err, tempo.ErrInvalidApproach) ||
		errors.Is(err, beat.ErrInvalidApproach) || errors.Is(err, rhythm.ErrInvalidApproach) {
		return &ConfigError{Field: field, Value: value, Options: options(valid)}
	}
	return err
}
