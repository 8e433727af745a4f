package tempo

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-rhythm/algorithms/novelty"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/spectral"
)

// Autocorrelation computes the autocorrelation tempogram: the short-time
// autocorrelation of log(1+x) of the novelty function, every frame normalised
// to a peak of 1. Lag 0 is dropped, so bin k holds lag k+1.
type Autocorrelation struct {
	config BuilderConfig
	stft   *spectral.STFT
}

// NewAutocorrelation creates an autocorrelation tempogram builder
func NewAutocorrelation(config BuilderConfig) *Autocorrelation {
	return &Autocorrelation{
		config: config,
		stft:   spectral.NewSTFT(),
	}
}

func (a *Autocorrelation) Name() Approach { return ApproachAutocorrelation }

func (a *Autocorrelation) Build(fn *novelty.Function) (*Tempogram, error) {
	lags, err := a.lags(fn)
	if err != nil {
		return nil, err
	}

	strength := make([][]float64, len(lags))
	for t, row := range lags {
		strength[t] = row[1:]
	}

	return &Tempogram{
		Strength:  strength,
		BPM:       a.BPMValues(fn),
		FrameRate: frameRate(fn, a.config.Hop),
	}, nil
}

// lags returns the normalised autocorrelation including lag 0
func (a *Autocorrelation) lags(fn *novelty.Function) ([][]float64, error) {
	compressed := make([]float64, len(fn.Values))
	for i, v := range fn.Values {
		compressed[i] = math.Log1p(v)
	}

	lags, err := a.stft.Autocorrelation(compressed, spectral.FrameParams{
		WindowLength: a.config.WindowLength,
		HopSize:      a.config.Hop,
		Center:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("autocorrelation tempogram: %w", err)
	}
	return lags, nil
}

// BPMValues labels lags 1..WindowLength-1 in BPM
func (a *Autocorrelation) BPMValues(fn *novelty.Function) []float64 {
	bpm := make([]float64, a.config.WindowLength-1)
	perMinute := 60 * fn.FrameRate()
	for k := range bpm {
		bpm[k] = perMinute / float64(k+1)
	}
	return bpm
}
