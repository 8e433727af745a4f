package rhythm

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-rhythm/algorithms/common"
	"github.com/RyanBlaney/sonido-rhythm/logging"
)

// ScorerConfig controls offset histograms and onset classification
type ScorerConfig struct {
	ToleranceMs   int     `json:"tolerance_ms"`
	MaxOffsets    int     `json:"max_offsets"`
	MinRecurrence float64 `json:"min_recurrence"` // onsets a dominant offset must hold
	Workers       int     `json:"workers"`        // partitions scored concurrently, 0 = one per CPU
}

// DefaultScorerConfig returns the scorer defaults
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		ToleranceMs:   10,
		MaxOffsets:    4,
		MinRecurrence: 2,
	}
}

// WindowResult is the outcome of scoring one partition
type WindowResult struct {
	Window     Window    `json:"window"`
	Offsets    []int     `json:"offsets"`    // dominant offsets from the beat, ms
	Onsets     []float64 `json:"onsets"`     // rhythmic onsets, seconds
	Candidates int       `json:"candidates"` // onsets inside the window
}

// Scorer finds rhythmic onsets partition by partition
type Scorer struct {
	config ScorerConfig
	logger logging.Logger
}

// NewScorer creates a rhythm scorer
func NewScorer(config ScorerConfig) *Scorer {
	if config.MaxOffsets <= 0 {
		config.MaxOffsets = 4
	}
	if config.ToleranceMs <= 0 {
		config.ToleranceMs = 10
	}
	return &Scorer{
		config: config,
		logger: logging.WithFields(logging.Fields{"component": "rhythm_scorer"}),
	}
}

// placed is an onset with its rounded offset from the beat at or before it
type placed struct {
	time     float64 // seconds, as given
	distance int     // ms
}

// place returns the onsets inside w with their beat distances. onsets and
// beats must be ascending seconds.
func place(onsets, beats []float64, w Window) []placed {
	first := sort.Search(len(onsets), func(i int) bool {
		return float64(common.SecondsToMs(onsets[i])) >= w.StartMs
	})

	out := make([]placed, 0)
	beatIdx := 0
	for _, t := range onsets[first:] {
		p := common.SecondsToMs(t)
		if float64(p) >= w.EndMs {
			break
		}
		if len(beats) == 0 {
			out = append(out, placed{time: t, distance: p})
			continue
		}
		for beatIdx+1 < len(beats) && common.SecondsToMs(beats[beatIdx+1]) <= p {
			beatIdx++
		}
		out = append(out, placed{time: t, distance: p - common.SecondsToMs(beats[beatIdx])})
	}
	return out
}

// Histogram builds the offset histogram of the onsets inside w
func (s *Scorer) Histogram(onsets, beats []float64, tempo int, w Window) *OffsetHistogram {
	return s.histogram(place(onsets, beats, w), tempo)
}

func (s *Scorer) histogram(inside []placed, tempo int) *OffsetHistogram {
	h := NewOffsetHistogram(int(60000/float64(tempo)), s.config.ToleranceMs)
	for _, o := range inside {
		h.Add(o.distance)
	}
	return h
}

// DominantOffsets returns the recurring offsets from the beat inside w
func (s *Scorer) DominantOffsets(onsets, beats []float64, tempo int, w Window) []int {
	return s.Histogram(onsets, beats, tempo, w).Dominant(s.config.MaxOffsets, s.config.MinRecurrence)
}

// ScoreWindow classifies the onsets inside w. Each onset is returned at most
// once, in input order.
func (s *Scorer) ScoreWindow(onsets, beats []float64, tempo int, w Window) WindowResult {
	result := WindowResult{Window: w, Offsets: []int{}, Onsets: []float64{}}
	if tempo <= 0 || w.EndMs <= w.StartMs {
		return result
	}

	inside := place(onsets, beats, w)
	result.Candidates = len(inside)

	h := s.histogram(inside, tempo)
	result.Offsets = h.Dominant(s.config.MaxOffsets, s.config.MinRecurrence)

	dominant := make(map[int]bool, len(result.Offsets))
	for _, off := range result.Offsets {
		dominant[off] = true
	}
	for _, o := range inside {
		if h.Matches(o.distance, dominant) {
			result.Onsets = append(result.Onsets, o.time)
		}
	}
	return result
}

// ScoreWindows scores every window concurrently; results keep window order
func (s *Scorer) ScoreWindows(ctx context.Context, onsets, beats []float64, tempo int, windows []Window) ([]WindowResult, error) {
	if tempo <= 0 {
		return nil, fmt.Errorf("tempo must be positive, got %d", tempo)
	}
	if !sort.Float64sAreSorted(onsets) || !sort.Float64sAreSorted(beats) {
		return nil, fmt.Errorf("onsets and beats must be in ascending order")
	}

	results := make([]WindowResult, len(windows))
	g, ctx := errgroup.WithContext(ctx)
	workers := s.config.Workers
	if workers <= 0 {
		workers = common.OptimalWorkerCount(len(windows))
	}
	g.SetLimit(workers)

	for i, w := range windows {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = s.ScoreWindow(onsets, beats, tempo, w)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range results {
		s.logger.Debug("Scored rhythm window", logging.Fields{
			"start_ms":   r.Window.StartMs,
			"end_ms":     r.Window.EndMs,
			"candidates": r.Candidates,
			"rhythmic":   len(r.Onsets),
			"offsets":    r.Offsets,
		})
	}
	return results, nil
}

// FindRhythmicOnsets returns the rhythmic onsets of all windows in order
func (s *Scorer) FindRhythmicOnsets(ctx context.Context, onsets, beats []float64, tempo int, windows []Window) ([]float64, error) {
	results, err := s.ScoreWindows(ctx, onsets, beats, tempo, windows)
	if err != nil {
		return nil, err
	}

	rhythmic := make([]float64, 0)
	for _, r := range results {
		rhythmic = append(rhythmic, r.Onsets...)
	}
	return rhythmic, nil
}
