// Package tempo builds tempograms from novelty functions and reduces them to
// a single dominant tempo in BPM.
package tempo

import (
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-rhythm/algorithms/common"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/novelty"
)

// Approach selects the tempogram representation
type Approach string

const (
	ApproachFourier         Approach = "fourier"
	ApproachAutocorrelation Approach = "autocorrelation"
	ApproachHybrid          Approach = "hybrid"
)

// Approaches lists the valid tempogram approaches
var Approaches = []Approach{ApproachFourier, ApproachAutocorrelation, ApproachHybrid}

// ErrInvalidApproach is returned for an unknown tempogram approach
var ErrInvalidApproach = errors.New("invalid tempogram approach")

// Tempogram scores periodicity strength per BPM bin over time
type Tempogram struct {
	Strength  [][]float64 `json:"strength"`   // [frame][bin]
	BPM       []float64   `json:"bpm"`        // BPM label of every bin
	FrameRate float64     `json:"frame_rate"` // tempogram frames per second
}

// NumFrames returns the number of time frames
func (t *Tempogram) NumFrames() int {
	return len(t.Strength)
}

// NumBins returns the number of BPM bins
func (t *Tempogram) NumBins() int {
	return len(t.BPM)
}

// Profile sums the strength of every bin over time
func (t *Tempogram) Profile() []float64 {
	if len(t.Strength) == 0 {
		return make([]float64, len(t.BPM))
	}
	return common.ColumnSums(t.Strength)
}

// Builder turns a novelty function into a tempogram
type Builder interface {
	Build(fn *novelty.Function) (*Tempogram, error)
	Name() Approach
}

// BuilderConfig holds the framing shared by all tempogram builders
type BuilderConfig struct {
	WindowLength int     `json:"window_length"` // novelty frames per tempogram window
	Hop          int     `json:"hop"`           // novelty frames between tempogram frames
	Gamma        float64 `json:"gamma"`         // hybrid compression
}

// DefaultBuilderConfig returns the builder defaults
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		WindowLength: 2048,
		Hop:          1,
		Gamma:        5,
	}
}

// NewBuilder returns the builder for approach
func NewBuilder(approach Approach, config BuilderConfig) (Builder, error) {
	if config.WindowLength <= 1 {
		return nil, fmt.Errorf("tempogram window length must be greater than 1, got %d", config.WindowLength)
	}
	if config.Hop <= 0 {
		config.Hop = 1
	}

	switch approach {
	case ApproachFourier:
		return NewFourier(config), nil
	case ApproachAutocorrelation:
		return NewAutocorrelation(config), nil
	case ApproachHybrid:
		return NewHybrid(config), nil
	default:
		return nil, fmt.Errorf("%w %q, options are: %v", ErrInvalidApproach, approach, Approaches)
	}
}

func frameRate(fn *novelty.Function, hop int) float64 {
	return fn.FrameRate() / float64(hop)
}
