package beat

import (
	"errors"
	"fmt"
)

// Approach selects the phase scoring rule
type Approach string

const (
	ApproachScore   Approach = "score"
	ApproachPenalty Approach = "penalty"
)

// Approaches lists the valid beat scoring approaches
var Approaches = []Approach{ApproachScore, ApproachPenalty}

// ErrInvalidApproach is returned for an unknown beat scoring approach
var ErrInvalidApproach = errors.New("invalid beat tracking approach")

// PhaseScorer scores a single click given the distance to its nearest onset
type PhaseScorer interface {
	ClickScore(distanceMs, periodMs float64) float64
	Name() Approach
}

// Binary awards one point per click within ToleranceMs of an onset
type Binary struct {
	ToleranceMs float64
}

func (b Binary) ClickScore(distanceMs, _ float64) float64 {
	if distanceMs <= b.ToleranceMs {
		return 1
	}
	return 0
}

func (b Binary) Name() Approach { return ApproachScore }

// Penalty awards 1 - p(d) per click, where p rises quadratically from 0 at
// d = 0 to 1 at half a period
type Penalty struct{}

func (Penalty) ClickScore(distanceMs, periodMs float64) float64 {
	return 1 - QuadraticPenalty(distanceMs, periodMs)
}

func (Penalty) Name() Approach { return ApproachPenalty }

// QuadraticPenalty is 4d²/period² below half a period and 1 from there on
func QuadraticPenalty(distanceMs, periodMs float64) float64 {
	if distanceMs >= periodMs/2 {
		return 1
	}
	return distanceMs * distanceMs * 4 / (periodMs * periodMs)
}

// NewScorer returns the scorer for approach. toleranceMs only applies to the
// binary scorer.
func NewScorer(approach Approach, toleranceMs float64) (PhaseScorer, error) {
	switch approach {
	case ApproachScore:
		return Binary{ToleranceMs: toleranceMs}, nil
	case ApproachPenalty:
		return Penalty{}, nil
	default:
		return nil, fmt.Errorf("%w %q, options are: %v", ErrInvalidApproach, approach, Approaches)
	}
}
