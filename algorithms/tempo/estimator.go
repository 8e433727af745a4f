package tempo

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/RyanBlaney/sonido-rhythm/logging"
)

// ErrNoTempoInRange is returned when no tempogram bin lies within the BPM bounds
var ErrNoTempoInRange = errors.New("no tempogram bin within BPM bounds")

// EstimatorConfig controls how dominant BPM values are extracted and grouped
type EstimatorConfig struct {
	Similarity     float64 `json:"similarity"`      // BPM tolerance for grouping
	DominantValues int     `json:"dominant_values"` // candidates per extraction round
	LowerBound     float64 `json:"lower_bound"`
	UpperBound     float64 `json:"upper_bound"`
}

// DefaultEstimatorConfig returns the estimator defaults
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		Similarity:     5,
		DominantValues: 5,
		LowerBound:     40,
		UpperBound:     200,
	}
}

// Estimator reduces a tempogram to a single tempo
type Estimator struct {
	config EstimatorConfig
	logger logging.Logger
}

// NewEstimator creates a tempo estimator
func NewEstimator(config EstimatorConfig) *Estimator {
	if config.DominantValues <= 0 {
		config.DominantValues = 5
	}
	return &Estimator{
		config: config,
		logger: logging.WithFields(logging.Fields{"component": "tempo_estimator"}),
	}
}

// Estimate returns the dominant tempo of tg in whole BPM
func (e *Estimator) Estimate(tg *Tempogram) (int, error) {
	candidates, err := e.Candidates(tg)
	if err != nil {
		return 0, err
	}

	tempo := DominantBPM(candidates, e.config.Similarity)
	e.logger.Debug("Tempo estimated", logging.Fields{
		"tempo":      tempo,
		"candidates": candidates,
	})
	return tempo, nil
}

// Candidates extracts the strongest in-range BPM values of tg, strongest
// first. Bins are taken in rounds of DominantValues, every bin at most once,
// until at least DominantValues in-range values are collected or the
// tempogram is exhausted.
func (e *Estimator) Candidates(tg *Tempogram) ([]float64, error) {
	if e.config.LowerBound > e.config.UpperBound {
		return nil, fmt.Errorf("lower bound %.1f exceeds upper bound %.1f", e.config.LowerBound, e.config.UpperBound)
	}

	profile := tg.Profile()
	if len(profile) != len(tg.BPM) {
		return nil, fmt.Errorf("tempogram has %d bins but %d BPM labels", len(profile), len(tg.BPM))
	}

	remaining := len(profile)
	kept := make([]float64, 0, e.config.DominantValues)
	for len(kept) < e.config.DominantValues && remaining > 0 {
		for range min(e.config.DominantValues, remaining) {
			idx := floats.MaxIdx(profile)
			profile[idx] = math.Inf(-1)
			remaining--

			if bpm := tg.BPM[idx]; bpm >= e.config.LowerBound && bpm <= e.config.UpperBound {
				kept = append(kept, bpm)
			}
		}
	}

	if len(kept) == 0 {
		return nil, fmt.Errorf("%w [%.0f, %.0f]", ErrNoTempoInRange, e.config.LowerBound, e.config.UpperBound)
	}
	return kept, nil
}

// GroupCandidates groups candidate indices in order. A candidate joins every
// group that already holds a member within similarity BPM of it and starts a
// new group when there is none, so two candidates within similarity always
// share at least one group.
func GroupCandidates(candidates []float64, similarity float64) [][]int {
	groups := make([][]int, 0)
	for i, bpm := range candidates {
		joined := false
		for g, members := range groups {
			for _, m := range members {
				if math.Abs(bpm-candidates[m]) <= similarity {
					groups[g] = append(groups[g], i)
					joined = true
					break
				}
			}
		}
		if !joined {
			groups = append(groups, []int{i})
		}
	}
	return groups
}

// DominantBPM weights candidate i by len(candidates)-i, groups similar
// candidates and returns the rounded weighted mean of the heaviest group.
// The first group wins ties. Returns 0 for no candidates.
func DominantBPM(candidates []float64, similarity float64) int {
	bestWeight := 0.0
	bestBPM := 0
	for _, members := range GroupCandidates(candidates, similarity) {
		sum, weight := 0.0, 0.0
		for _, i := range members {
			w := float64(len(candidates) - i)
			sum += candidates[i] * w
			weight += w
		}
		if weight > bestWeight {
			bestWeight = weight
			bestBPM = int(math.Round(sum / weight))
		}
	}
	return bestBPM
}
