package beat

import (
	"math"
)

// ClickParams shapes the synthesised click
type ClickParams struct {
	Frequency float64 `json:"frequency"` // Hz
	Duration  float64 `json:"duration"`  // seconds
	Gain      float64 `json:"gain"`
}

// DefaultClickParams returns a 1kHz click of 100ms
func DefaultClickParams() ClickParams {
	return ClickParams{Frequency: 1000, Duration: 0.1, Gain: 1}
}

// RenderClickTrack synthesises numSamples of audio with an exponentially
// decaying sine click at every grid time. Clicks that start before 0 or
// after the end are skipped; overlapping clicks add up.
func RenderClickTrack(grid []float64, sampleRate, numSamples int, p ClickParams) []float64 {
	out := make([]float64, max(numSamples, 0))
	if sampleRate <= 0 || len(out) == 0 {
		return out
	}

	click := synthClick(sampleRate, p)
	for _, t := range grid {
		start := int(math.Round(t * float64(sampleRate)))
		if start < 0 || start >= len(out) {
			continue
		}
		for i, v := range click {
			if start+i >= len(out) {
				break
			}
			out[start+i] += v
		}
	}
	return out
}

// synthClick decays from 1 to 2^-10 over the click duration
func synthClick(sampleRate int, p ClickParams) []float64 {
	n := int(p.Duration * float64(sampleRate))
	if n <= 0 {
		return []float64{}
	}

	click := make([]float64, n)
	for i := range click {
		decay := 1.0
		if n > 1 {
			decay = math.Pow(2, -10*float64(i)/float64(n-1))
		}
		phase := 2 * math.Pi * p.Frequency * float64(i) / float64(sampleRate)
		click[i] = p.Gain * decay * math.Sin(phase)
	}
	return click
}
