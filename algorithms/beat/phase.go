package beat

import (
	"fmt"

	"github.com/RyanBlaney/sonido-rhythm/algorithms/common"
	"github.com/RyanBlaney/sonido-rhythm/logging"
)

// PhaseEstimator searches every whole-millisecond shift of one beat period
// for the one whose clicks best match the onset candidates
type PhaseEstimator struct {
	workers int
	logger  logging.Logger
}

// NewPhaseEstimator creates a phase estimator. workers <= 0 sizes the pool
// from the search space.
func NewPhaseEstimator(workers int) *PhaseEstimator {
	return &PhaseEstimator{
		workers: workers,
		logger:  logging.WithFields(logging.Fields{"component": "beat_phase"}),
	}
}

// Scores returns the total score of every shift 0..PeriodMs(tempo)-1.
// onsets must be ascending seconds.
func (pe *PhaseEstimator) Scores(onsets []float64, tempo int, duration float64, scorer PhaseScorer) ([]float64, error) {
	if tempo <= 0 {
		return nil, fmt.Errorf("tempo must be positive, got %d", tempo)
	}
	if scorer == nil {
		return nil, fmt.Errorf("no phase scorer")
	}

	clicks := toMs(ClickTimes(tempo, duration))
	onsetsMs := toMs(onsets)
	periodMs := 60000 / float64(tempo)

	scores := make([]float64, max(PeriodMs(tempo), 1))
	common.ForEach(len(scores), pe.workers, func() func(int) {
		matcher := newNearestMatcher(onsetsMs)
		return func(shift int) {
			matcher.reset()
			total := 0.0
			for _, c := range clicks {
				total += scorer.ClickScore(matcher.distance(c+float64(shift)), periodMs)
			}
			scores[shift] = total
		}
	})
	return scores, nil
}

// Estimate returns the phase in seconds; the earliest shift wins ties
func (pe *PhaseEstimator) Estimate(onsets []float64, tempo int, duration float64, scorer PhaseScorer) (float64, error) {
	scores, err := pe.Scores(onsets, tempo, duration, scorer)
	if err != nil {
		return 0, err
	}

	best := 0
	for shift := 1; shift < len(scores); shift++ {
		if scores[shift] > scores[best] {
			best = shift
		}
	}

	pe.logger.Debug("Beat phase estimated", logging.Fields{
		"tempo":    tempo,
		"shift_ms": best,
		"score":    scores[best],
		"scorer":   scorer.Name(),
		"onsets":   len(onsets),
	})
	return float64(best) / 1000, nil
}
