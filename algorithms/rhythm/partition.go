// Package rhythm selects the onset candidates that recur at a consistent
// offset from the beat grid, scoring every part of a song separately.
package rhythm

import (
	"errors"
	"fmt"
	"sort"

	"github.com/RyanBlaney/sonido-rhythm/algorithms/common"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/temporal"
)

// Approach selects how a song is partitioned
type Approach string

const (
	ApproachParts       Approach = "parts"
	ApproachChorusVerse Approach = "chorus-verse"
)

// Approaches lists the valid rhythm partitioning approaches
var Approaches = []Approach{ApproachParts, ApproachChorusVerse}

// ErrInvalidApproach is returned for an unknown partitioning approach
var ErrInvalidApproach = errors.New("invalid rhythm tracking approach")

// Window is a half-open [StartMs, EndMs) span of the song
type Window struct {
	StartMs float64 `json:"start_ms"`
	EndMs   float64 `json:"end_ms"`
}

// Contains reports whether t (ms) lies in the window
func (w Window) Contains(t float64) bool {
	return t >= w.StartMs && t < w.EndMs
}

// PartitionStrategy splits a song of duration seconds into windows
type PartitionStrategy interface {
	Windows(duration float64) ([]Window, error)
	Name() Approach
}

// PartitionConfig holds the settings of both strategies
type PartitionConfig struct {
	PartSeconds        float64 `json:"part_seconds"`
	SegmentSeconds     float64 `json:"segment_seconds"`
	SecondsPerBoundary float64 `json:"seconds_per_boundary"`
	SuppressionSeconds float64 `json:"suppression_seconds"`
	TrailingSeconds    float64 `json:"trailing_seconds"`
}

// DefaultPartitionConfig returns the partitioning defaults
func DefaultPartitionConfig() PartitionConfig {
	return PartitionConfig{
		PartSeconds:        20,
		SegmentSeconds:     8,
		SecondsPerBoundary: 20,
		SuppressionSeconds: 10,
		TrailingSeconds:    5,
	}
}

// NewPartitionStrategy returns the strategy for approach. The energy-change
// strategy reads the raw samples; equal parts ignores them.
func NewPartitionStrategy(approach Approach, config PartitionConfig, samples []float64, sampleRate, hopLength int) (PartitionStrategy, error) {
	switch approach {
	case ApproachParts:
		return EqualParts{PartSeconds: config.PartSeconds}, nil
	case ApproachChorusVerse:
		return NewEnergyChange(samples, sampleRate, hopLength, config), nil
	default:
		return nil, fmt.Errorf("%w %q, options are: %v", ErrInvalidApproach, approach, Approaches)
	}
}

// EqualParts cuts the song into PartSeconds windows plus a trailing window
// for the remainder, which is always scored
type EqualParts struct {
	PartSeconds float64
}

func (EqualParts) Name() Approach { return ApproachParts }

func (e EqualParts) Windows(duration float64) ([]Window, error) {
	if e.PartSeconds <= 0 {
		return nil, fmt.Errorf("part length must be positive, got %.2f", e.PartSeconds)
	}

	full := int(duration / e.PartSeconds)
	windows := make([]Window, 0, full+1)
	for i := range full {
		windows = append(windows, Window{
			StartMs: float64(i) * e.PartSeconds * 1000,
			EndMs:   float64(i+1) * e.PartSeconds * 1000,
		})
	}
	windows = append(windows, Window{
		StartMs: float64(full) * e.PartSeconds * 1000,
		EndMs:   duration * 1000,
	})
	return windows, nil
}

// EnergyChange places part boundaries where the segment-level RMS energy of
// the audio changes most, assuming that verses, choruses and other parts
// differ in loudness
type EnergyChange struct {
	samples    []float64
	sampleRate int
	hopLength  int
	config     PartitionConfig
	energy     *temporal.Energy
}

// NewEnergyChange creates an energy-change partitioner over samples
func NewEnergyChange(samples []float64, sampleRate, hopLength int, config PartitionConfig) *EnergyChange {
	return &EnergyChange{
		samples:    samples,
		sampleRate: sampleRate,
		hopLength:  hopLength,
		config:     config,
		energy:     temporal.NewEnergy(0, hopLength, sampleRate),
	}
}

func (*EnergyChange) Name() Approach { return ApproachChorusVerse }

// Boundaries returns the ascending part boundaries in seconds, starting at 0
func (e *EnergyChange) Boundaries(duration float64) ([]float64, error) {
	if e.sampleRate <= 0 || e.hopLength <= 0 {
		return nil, fmt.Errorf("sample rate and hop length must be positive")
	}
	if e.config.SegmentSeconds <= 0 || e.config.SecondsPerBoundary <= 0 {
		return nil, fmt.Errorf("segment length and seconds per boundary must be positive")
	}

	rms := e.energy.ComputeSegmentRMS(e.samples, e.config.SegmentSeconds)
	change := common.Abs(common.FirstOrderDiff(rms))

	budget := int(duration / e.config.SecondsPerBoundary)
	radius := int(float64(e.sampleRate) * e.config.SuppressionSeconds / float64(e.hopLength))

	boundaries := []float64{0}
	for range budget {
		peak := common.ArgMax(change)
		if peak < 0 || change[peak] <= 0 {
			break
		}
		for i := max(peak-radius, 0); i < min(peak+radius, len(change)); i++ {
			change[i] = 0
		}
		if t := e.energy.FrameTime(peak); t < duration {
			boundaries = append(boundaries, t)
		}
	}

	sort.Float64s(boundaries)
	unique := boundaries[:1]
	for _, b := range boundaries[1:] {
		if b > unique[len(unique)-1] {
			unique = append(unique, b)
		}
	}
	return unique, nil
}

func (e *EnergyChange) Windows(duration float64) ([]Window, error) {
	boundaries, err := e.Boundaries(duration)
	if err != nil {
		return nil, err
	}

	windows := make([]Window, 0, len(boundaries))
	for i := 0; i+1 < len(boundaries); i++ {
		windows = append(windows, Window{StartMs: boundaries[i] * 1000, EndMs: boundaries[i+1] * 1000})
	}
	if last := boundaries[len(boundaries)-1]; duration-last > e.config.TrailingSeconds {
		windows = append(windows, Window{StartMs: last * 1000, EndMs: duration * 1000})
	}
	return windows, nil
}
