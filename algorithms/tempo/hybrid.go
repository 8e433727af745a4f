package tempo

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-rhythm/algorithms/novelty"
)

// Hybrid multiplies the Fourier and autocorrelation tempograms bin by bin
// and compresses the product with log(1 + Gamma*x), which sharpens tempi both
// representations agree on. Bin k (k >= 1) pairs Fourier bin k with lag k and
// keeps the Fourier BPM label.
type Hybrid struct {
	config          BuilderConfig
	fourier         *Fourier
	autocorrelation *Autocorrelation
}

// NewHybrid creates a hybrid tempogram builder
func NewHybrid(config BuilderConfig) *Hybrid {
	if config.Gamma <= 0 {
		config.Gamma = 5
	}
	return &Hybrid{
		config:          config,
		fourier:         NewFourier(config),
		autocorrelation: NewAutocorrelation(config),
	}
}

func (h *Hybrid) Name() Approach { return ApproachHybrid }

func (h *Hybrid) Build(fn *novelty.Function) (*Tempogram, error) {
	f, err := h.fourier.Build(fn)
	if err != nil {
		return nil, err
	}
	lags, err := h.autocorrelation.lags(fn)
	if err != nil {
		return nil, err
	}
	if len(lags) != len(f.Strength) {
		return nil, fmt.Errorf("hybrid tempogram: frame count mismatch (%d fourier, %d autocorrelation)",
			len(f.Strength), len(lags))
	}

	numBins := h.config.WindowLength - 1
	strength := make([][]float64, len(lags))
	for t := range lags {
		row := make([]float64, numBins)
		for k := 1; k <= numBins; k++ {
			row[k-1] = math.Log1p(h.config.Gamma * max(f.Strength[t][k]*lags[t][k], 0))
		}
		strength[t] = row
	}

	return &Tempogram{
		Strength:  strength,
		BPM:       f.BPM[1 : numBins+1],
		FrameRate: f.FrameRate,
	}, nil
}
