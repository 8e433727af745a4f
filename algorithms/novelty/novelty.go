// Package novelty turns raw audio samples into onset-strength (novelty)
// functions: one non-negative value per analysis frame whose peaks mark
// likely note onsets.
package novelty

import (
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-rhythm/algorithms/common"
)

// Approach selects the novelty computation
type Approach string

const (
	ApproachEnergy   Approach = "energy"
	ApproachSpectral Approach = "spectral"
)

// Approaches lists the valid novelty approaches
var Approaches = []Approach{ApproachEnergy, ApproachSpectral}

// ErrInvalidApproach is returned for an unknown novelty approach
var ErrInvalidApproach = errors.New("invalid novelty function approach")

// Function is a frame-indexed novelty signal together with the framing
// metadata needed to turn frame indices into seconds. It is never mutated
// after construction.
type Function struct {
	Values      []float64 `json:"values"`
	SampleRate  int       `json:"sample_rate"`
	FrameLength int       `json:"frame_length"`
	HopLength   int       `json:"hop_length"`
	Duration    float64   `json:"duration"` // seconds
}

// NewFunction wraps precomputed novelty values. A non-positive duration is
// derived from the number of frames.
func NewFunction(values []float64, sampleRate, frameLength, hopLength int, duration float64) *Function {
	if duration <= 0 && sampleRate > 0 {
		duration = float64(len(values)*hopLength) / float64(sampleRate)
	}
	return &Function{
		Values:      values,
		SampleRate:  sampleRate,
		FrameLength: frameLength,
		HopLength:   hopLength,
		Duration:    duration,
	}
}

// Len returns the number of frames
func (f *Function) Len() int {
	return len(f.Values)
}

// FrameTime returns the time in seconds of frame i
func (f *Function) FrameTime(i int) float64 {
	return common.FramesToTime(i, f.HopLength, f.SampleRate)
}

// FrameRate returns frames per second
func (f *Function) FrameRate() float64 {
	return float64(f.SampleRate) / float64(f.HopLength)
}

// Params carries the framing and compression settings of a novelty computation
type Params struct {
	SampleRate          int
	FrameLength         int
	HopLength           int
	Gamma               float64
	NeighborhoodSeconds float64 // spectral only: local-average half width
}

// Calculator computes a novelty function from mono samples
type Calculator interface {
	Compute(samples []float64, duration float64) (*Function, error)
	Name() Approach
}

// NewCalculator returns the calculator for approach
func NewCalculator(approach Approach, p Params) (Calculator, error) {
	switch approach {
	case ApproachEnergy:
		return NewEnergy(p), nil
	case ApproachSpectral:
		return NewSpectral(p), nil
	default:
		return nil, fmt.Errorf("%w %q, options are: %v", ErrInvalidApproach, approach, Approaches)
	}
}

func (p Params) validate() error {
	if p.SampleRate <= 0 || p.FrameLength <= 0 || p.HopLength <= 0 {
		return fmt.Errorf("sample rate, frame length and hop length must be positive (got %d, %d, %d)",
			p.SampleRate, p.FrameLength, p.HopLength)
	}
	return nil
}
