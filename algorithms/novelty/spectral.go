package novelty

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-rhythm/algorithms/common"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/spectral"
)

// topDB bounds the dynamic range of the compressed spectrogram
const topDB = 80.0

// Spectral computes the spectral-flux novelty function. The magnitude
// spectrogram is log-compressed, differentiated over time, half-wave
// rectified and summed over frequency; the result is locally normalised by
// subtracting a moving average and scaling to a maximum of 1.
type Spectral struct {
	params Params
	stft   *spectral.STFT
}

// NewSpectral creates a spectral novelty calculator
func NewSpectral(p Params) *Spectral {
	return &Spectral{
		params: p,
		stft:   spectral.NewSTFT(),
	}
}

func (s *Spectral) Name() Approach { return ApproachSpectral }

func (s *Spectral) Compute(samples []float64, duration float64) (*Function, error) {
	if err := s.params.validate(); err != nil {
		return nil, err
	}

	result, err := s.stft.Compute(samples, spectral.FrameParams{
		FFTSize:      s.params.FrameLength,
		WindowLength: s.params.FrameLength,
		HopSize:      s.params.HopLength,
		Center:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("spectral novelty: %w", err)
	}

	compressed := s.compress(result.Magnitude)

	values := make([]float64, result.TimeFrames)
	for t := 1; t < result.TimeFrames; t++ {
		flux := 0.0
		for k := range result.FreqBins {
			if d := compressed[t][k] - compressed[t-1][k]; d > 0 {
				flux += d
			}
		}
		values[t-1] = flux
	}
	// values[last] stays 0 so the curve keeps one value per STFT frame

	values = s.localNormalize(values)
	return NewFunction(values, s.params.SampleRate, s.params.FrameLength, s.params.HopLength, duration), nil
}

// compress maps magnitudes to 20*log10(1 + gamma*|X|), clipped topDB below the peak
func (s *Spectral) compress(magnitude [][]float64) [][]float64 {
	out := make([][]float64, len(magnitude))
	peak := math.Inf(-1)
	for t, row := range magnitude {
		out[t] = make([]float64, len(row))
		for k, m := range row {
			db := 20 * math.Log10(1+s.params.Gamma*m)
			out[t][k] = db
			peak = math.Max(peak, db)
		}
	}

	floor := peak - topDB
	for _, row := range out {
		for k, db := range row {
			if db < floor {
				row[k] = floor
			}
		}
	}
	return out
}

// localNormalize subtracts the average over +-NeighborhoodSeconds, drops
// negative values and scales the result to a maximum of 1
func (s *Spectral) localNormalize(values []float64) []float64 {
	m := common.TimeToFrames(s.params.NeighborhoodSeconds, s.params.HopLength, s.params.SampleRate)
	width := float64(2*m + 1)

	prefix := make([]float64, len(values)+1)
	for i, v := range values {
		prefix[i+1] = prefix[i] + v
	}

	out := make([]float64, len(values))
	for i := range values {
		a := max(i-m, 0)
		b := min(i+m+1, len(values))
		avg := (prefix[b] - prefix[a]) / width
		if d := values[i] - avg; d > 0 {
			out[i] = d
		}
	}

	if peak := common.Max(out); peak > 0 {
		return common.Scale(out, 1/peak)
	}
	return out
}
