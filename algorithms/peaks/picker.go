package peaks

import (
	"github.com/RyanBlaney/sonido-rhythm/algorithms/common"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/novelty"
	"github.com/RyanBlaney/sonido-rhythm/logging"
)

// Candidate is one onset candidate
type Candidate struct {
	Frame int     `json:"frame"`
	Time  float64 `json:"time"` // seconds
}

// CandidateSet is ordered by strictly increasing frame
type CandidateSet []Candidate

// Times returns the candidate times in seconds
func (cs CandidateSet) Times() []float64 {
	times := make([]float64, len(cs))
	for i, c := range cs {
		times[i] = c.Time
	}
	return times
}

// Frames returns the candidate frame indices
func (cs CandidateSet) Frames() []int {
	frames := make([]int, len(cs))
	for i, c := range cs {
		frames[i] = c.Frame
	}
	return frames
}

// MinPeakCount is the number of onset candidates requested for a song of
// duration seconds at tempo BPM, scaled by alpha
func MinPeakCount(tempo int, duration, alpha float64) int {
	return int(float64(tempo) / 60 * duration * alpha)
}

// PickerConfig holds the adaptive threshold parameters
type PickerConfig struct {
	Window         Window  `json:"window"`
	InitialDelta   float64 `json:"initial_delta"`
	DecayFactor    float64 `json:"decay_factor"`
	SegmentSeconds float64 `json:"segment_seconds"`
	MinDelta       float64 `json:"min_delta"`
}

// DefaultPickerConfig returns the picker defaults
func DefaultPickerConfig() PickerConfig {
	return PickerConfig{
		Window:         DefaultWindow(),
		InitialDelta:   100,
		DecayFactor:    1.1,
		SegmentSeconds: 10,
		MinDelta:       1e-5,
	}
}

// Picker splits the novelty function into segments and lowers the peak
// threshold of each segment until it yields its share of the requested
// candidates
type Picker struct {
	config PickerConfig
	logger logging.Logger
}

// NewPicker creates a picker
func NewPicker(config PickerConfig) *Picker {
	if config.DecayFactor <= 1 {
		config.DecayFactor = 1.1
	}
	if config.InitialDelta <= 0 {
		config.InitialDelta = 100
	}
	if config.MinDelta <= 0 {
		config.MinDelta = 1e-5
	}
	return &Picker{
		config: config,
		logger: logging.WithFields(logging.Fields{"component": "peak_picker"}),
	}
}

// Pick returns the peak frames of signal in increasing order. duration is the
// length of the analysed audio in seconds. When the threshold floor is
// reached before a segment yields its target the segment keeps what it found.
func (p *Picker) Pick(signal []float64, duration float64, minPeakCount int) []int {
	n := len(signal)
	if n == 0 {
		return []int{}
	}

	parts := 1
	if p.config.SegmentSeconds > 0 {
		parts = max(int(duration/p.config.SegmentSeconds), 1)
	}
	partLen := n / parts
	if partLen == 0 {
		parts, partLen = 1, n
	}
	last := n - parts*partLen

	perPart := minPeakCount / parts
	peaks := make([]int, 0, max(minPeakCount, 0))
	for i := range parts {
		start := i * partLen
		peaks = append(peaks, p.pickSegment(signal, start, start+partLen, perPart)...)
	}
	if last > 0 {
		// the remainder gets a share proportional to its length
		target := int(float64(minPeakCount) / float64(parts) * float64(last) / float64(partLen))
		peaks = append(peaks, p.pickSegment(signal, n-last, n, target)...)
	}

	if len(peaks) < minPeakCount {
		p.logger.Debug("Peak picking reached threshold floor", logging.Fields{
			"requested": minPeakCount,
			"found":     len(peaks),
			"segments":  parts,
		})
	}
	return peaks
}

// pickSegment searches signal[start:end] as if every other frame were zero
func (p *Picker) pickSegment(signal []float64, start, end, target int) []int {
	masked := p.mask(signal, start, end)

	delta := p.config.InitialDelta
	found := LocalMaxima(masked, start, end, delta, p.config.Window)
	for len(found) < target {
		delta /= p.config.DecayFactor
		found = LocalMaxima(masked, start, end, delta, p.config.Window)
		if delta < p.config.MinDelta {
			break
		}
	}
	return found
}

// mask returns a copy of signal that is zero outside [start, end)
func (p *Picker) mask(signal []float64, start, end int) []float64 {
	masked := make([]float64, len(signal))
	copy(masked[start:end], signal[start:end])
	return masked
}

// PickCandidates runs Pick over a novelty function and attaches frame times
func (p *Picker) PickCandidates(fn *novelty.Function, minPeakCount int) CandidateSet {
	frames := p.Pick(fn.Values, fn.Duration, minPeakCount)
	set := make(CandidateSet, 0, len(frames))
	for _, f := range frames {
		t := common.FramesToTime(f, fn.HopLength, fn.SampleRate)
		if t > fn.Duration {
			break
		}
		set = append(set, Candidate{Frame: f, Time: t})
	}
	return set
}
