package tempo

import (
	"fmt"

	"github.com/RyanBlaney/sonido-rhythm/algorithms/novelty"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/spectral"
)

// Fourier computes the Fourier tempogram: the magnitude STFT of the novelty
// function with an FFT twice as long as the window, so bin k of a novelty
// function sampled at r frames per second sits at k*r*60/(2*WindowLength) BPM.
type Fourier struct {
	config BuilderConfig
	stft   *spectral.STFT
}

// NewFourier creates a Fourier tempogram builder
func NewFourier(config BuilderConfig) *Fourier {
	return &Fourier{
		config: config,
		stft:   spectral.NewSTFT(),
	}
}

func (f *Fourier) Name() Approach { return ApproachFourier }

func (f *Fourier) fftSize() int {
	return 2 * f.config.WindowLength
}

func (f *Fourier) Build(fn *novelty.Function) (*Tempogram, error) {
	result, err := f.stft.Compute(fn.Values, spectral.FrameParams{
		FFTSize:      f.fftSize(),
		WindowLength: f.config.WindowLength,
		HopSize:      f.config.Hop,
		Center:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("fourier tempogram: %w", err)
	}

	return &Tempogram{
		Strength:  result.Magnitude,
		BPM:       f.BPMValues(fn, result.FreqBins),
		FrameRate: frameRate(fn, f.config.Hop),
	}, nil
}

// BPMValues labels the first numBins frequency bins in BPM
func (f *Fourier) BPMValues(fn *novelty.Function, numBins int) []float64 {
	bpm := make([]float64, numBins)
	step := fn.FrameRate() * 60 / float64(f.fftSize())
	for k := range bpm {
		bpm[k] = float64(k) * step
	}
	return bpm
}
