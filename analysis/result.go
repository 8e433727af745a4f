package analysis

import (
	"time"

	"github.com/google/uuid"

	"github.com/RyanBlaney/sonido-rhythm/algorithms/beat"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/novelty"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/rhythm"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/tempo"
)

// Approaches records the approach used by each stage
type Approaches struct {
	Novelty novelty.Approach `json:"novelty"`
	Tempo   tempo.Approach   `json:"tempo"`
	Beat    beat.Approach    `json:"beat"`
	Rhythm  rhythm.Approach  `json:"rhythm"`
}

// Result is the outcome of a full analysis. All times are in seconds.
type Result struct {
	ID             string  `json:"id"`
	Source         string  `json:"source,omitempty"`
	Tempo          int     `json:"tempo"`
	TempoEstimated bool    `json:"tempo_estimated"` // false when the tempo was fixed in the config
	Phase          float64 `json:"phase"`

	BeatTimes        []float64             `json:"beat_times"`
	RhythmicOnsets   []float64             `json:"rhythmic_onsets"`
	BeatCandidates   []float64             `json:"beat_candidates"`
	RhythmCandidates []float64             `json:"rhythm_candidates"`
	Windows          []rhythm.WindowResult `json:"windows"`

	Duration   float64    `json:"duration"`
	SampleRate int        `json:"sample_rate"`
	Approaches Approaches `json:"approaches"`
	CreatedAt  time.Time  `json:"created_at"`

	// Novelty is kept for plotting and is not serialised
	Novelty *novelty.Function `json:"-"`
}

func newResult(source string, config *Config) *Result {
	return &Result{
		ID:     uuid.New().String(),
		Source: source,
		Approaches: Approaches{
			Novelty: config.Novelty.Approach,
			Tempo:   config.Tempo.Approach,
			Beat:    config.Beat.Approach,
			Rhythm:  config.Rhythm.Approach,
		},
		CreatedAt: time.Now(),
	}
}
