package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-rhythm/algorithms/beat"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/novelty"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/peaks"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/rhythm"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/tempo"
)

// Config configures every stage of the rhythm analysis. Nested stage
// configs use json tags only; YAML files are mapped onto them through JSON.
type Config struct {
	SampleRate      int     `json:"sample_rate"`
	FrameLength     int     `json:"frame_length"`
	HopLength       int     `json:"hop_length"`
	DurationSeconds float64 `json:"duration_seconds"` // 0 analyses the whole recording
	Workers         int     `json:"workers"`          // 0 = one per CPU

	Novelty NoveltyConfig      `json:"novelty"`
	Peaks   peaks.PickerConfig `json:"peaks"`
	Tempo   TempoConfig        `json:"tempo"`
	Beat    BeatConfig         `json:"beat"`
	Rhythm  RhythmConfig       `json:"rhythm"`
}

type NoveltyConfig struct {
	Approach            novelty.Approach `json:"approach"`
	Gamma               float64          `json:"gamma"`
	NeighborhoodSeconds float64          `json:"neighborhood_seconds"`
}

type TempoConfig struct {
	Approach  tempo.Approach        `json:"approach"`
	BPM       int                   `json:"bpm"` // > 0 skips estimation
	Builder   tempo.BuilderConfig   `json:"builder"`
	Estimator tempo.EstimatorConfig `json:"estimator"`
}

type BeatConfig struct {
	Approach    beat.Approach `json:"approach"`
	ToleranceMs float64       `json:"tolerance_ms"` // score approach only
	Alpha       float64       `json:"alpha"`        // candidates per expected beat
}

type RhythmConfig struct {
	Approach  rhythm.Approach        `json:"approach"`
	Alpha     float64                `json:"alpha"`
	Scorer    rhythm.ScorerConfig    `json:"scorer"`
	Partition rhythm.PartitionConfig `json:"partition"`
}

// DefaultConfig returns the analysis defaults: 44.1kHz audio framed at
// 2048/512, spectral novelty, Fourier tempogram, score beat tracking and
// equal-parts rhythm tracking
func DefaultConfig() *Config {
	return &Config{
		SampleRate:  44100,
		FrameLength: 2048,
		HopLength:   512,
		Novelty: NoveltyConfig{
			Approach:            novelty.ApproachSpectral,
			Gamma:               10,
			NeighborhoodSeconds: 0.1,
		},
		Peaks: peaks.DefaultPickerConfig(),
		Tempo: TempoConfig{
			Approach:  tempo.ApproachFourier,
			Builder:   tempo.DefaultBuilderConfig(),
			Estimator: tempo.DefaultEstimatorConfig(),
		},
		Beat: BeatConfig{
			Approach:    beat.ApproachScore,
			ToleranceMs: 10,
			Alpha:       1.5,
		},
		Rhythm: RhythmConfig{
			Approach:  rhythm.ApproachParts,
			Alpha:     2,
			Scorer:    rhythm.DefaultScorerConfig(),
			Partition: rhythm.DefaultPartitionConfig(),
		},
	}
}

// Validate checks every field the pipeline depends on. The first problem is
// returned as a *ConfigError.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return &ConfigError{Field: "sample_rate", Value: c.SampleRate, Reason: "must be positive"}
	}
	if c.FrameLength <= 0 {
		return &ConfigError{Field: "frame_length", Value: c.FrameLength, Reason: "must be positive"}
	}
	if c.HopLength <= 0 {
		return &ConfigError{Field: "hop_length", Value: c.HopLength, Reason: "must be positive"}
	}
	if c.DurationSeconds < 0 {
		return &ConfigError{Field: "duration_seconds", Value: c.DurationSeconds, Reason: "must not be negative"}
	}

	if !slices.Contains(novelty.Approaches, c.Novelty.Approach) {
		return &ConfigError{Field: "novelty.approach", Value: c.Novelty.Approach, Options: options(novelty.Approaches)}
	}
	if !slices.Contains(tempo.Approaches, c.Tempo.Approach) {
		return &ConfigError{Field: "tempo.approach", Value: c.Tempo.Approach, Options: options(tempo.Approaches)}
	}
	if !slices.Contains(beat.Approaches, c.Beat.Approach) {
		return &ConfigError{Field: "beat.approach", Value: c.Beat.Approach, Options: options(beat.Approaches)}
	}
	if !slices.Contains(rhythm.Approaches, c.Rhythm.Approach) {
		return &ConfigError{Field: "rhythm.approach", Value: c.Rhythm.Approach, Options: options(rhythm.Approaches)}
	}

	if c.Tempo.BPM < 0 {
		return &ConfigError{Field: "tempo.bpm", Value: c.Tempo.BPM, Reason: "must not be negative"}
	}
	est := c.Tempo.Estimator
	if est.LowerBound > est.UpperBound {
		return &ConfigError{Field: "tempo.estimator.lower_bound", Value: est.LowerBound,
			Reason: fmt.Sprintf("must not exceed upper bound %.0f", est.UpperBound)}
	}
	if c.Tempo.Builder.WindowLength <= 1 {
		return &ConfigError{Field: "tempo.builder.window_length", Value: c.Tempo.Builder.WindowLength, Reason: "must be greater than 1"}
	}
	if c.Beat.Alpha <= 0 {
		return &ConfigError{Field: "beat.alpha", Value: c.Beat.Alpha, Reason: "must be positive"}
	}
	if c.Rhythm.Alpha <= 0 {
		return &ConfigError{Field: "rhythm.alpha", Value: c.Rhythm.Alpha, Reason: "must be positive"}
	}
	if c.Peaks.SegmentSeconds <= 0 {
		return &ConfigError{Field: "peaks.segment_seconds", Value: c.Peaks.SegmentSeconds, Reason: "must be positive"}
	}
	if c.Rhythm.Approach == rhythm.ApproachParts && c.Rhythm.Partition.PartSeconds <= 0 {
		return &ConfigError{Field: "rhythm.partition.part_seconds", Value: c.Rhythm.Partition.PartSeconds, Reason: "must be positive"}
	}
	return nil
}

func options[T ~string](approaches []T) []string {
	out := make([]string, len(approaches))
	for i, a := range approaches {
		out[i] = string(a)
	}
	return out
}

const maxConfigSize = 1 * 1024 * 1024

// LoadConfig reads a .json, .yaml or .yml file on top of DefaultConfig.
// Fields the file omits keep their defaults.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if ext != ".json" {
		if data, err = yamlToJSON(data); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}
	return cfg, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(doc)
}
