package spectral

import (
	"fmt"
	"math/cmplx"

	"github.com/RyanBlaney/sonido-rhythm/algorithms/common"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/windowing"
)

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	fft *FFT
}

// FrameParams describes how a signal is cut into analysis frames
type FrameParams struct {
	FFTSize      int  `json:"fft_size"`      // Transform length (>= WindowLength)
	WindowLength int  `json:"window_length"` // Hann window length, centered inside FFTSize
	HopSize      int  `json:"hop_size"`      // Samples between frame starts
	Center       bool `json:"center"`        // Pad FFTSize/2 zeros on both sides so frame t is centered on sample t*HopSize
}

// STFTResult holds the magnitude spectrogram
type STFTResult struct {
	Magnitude  [][]float64 `json:"magnitude"`   // Time x Frequency magnitude matrix
	TimeFrames int         `json:"time_frames"` // Number of time frames
	FreqBins   int         `json:"freq_bins"`   // FFTSize/2 + 1
	FFTSize    int         `json:"fft_size"`
	HopSize    int         `json:"hop_size"`
}

// NewSTFT creates a new STFT calculator
func NewSTFT() *STFT {
	return &STFT{
		fft: NewFFT(),
	}
}

func (p FrameParams) validate() error {
	if p.FFTSize <= 0 {
		return fmt.Errorf("fft size must be positive")
	}
	if p.WindowLength <= 0 || p.WindowLength > p.FFTSize {
		return fmt.Errorf("window length must be in (0, %d], got %d", p.FFTSize, p.WindowLength)
	}
	if p.HopSize <= 0 {
		return fmt.Errorf("hop size must be positive")
	}
	return nil
}

// framing pads the signal according to p and returns it with the frame count
func (p FrameParams) framing(signal []float64) ([]float64, int) {
	padded := signal
	if p.Center {
		pad := p.FFTSize / 2
		padded = make([]float64, len(signal)+2*pad)
		copy(padded[pad:], signal)
	}
	if len(padded) < p.FFTSize {
		return padded, 0
	}
	return padded, (len(padded)-p.FFTSize)/p.HopSize + 1
}

// Compute computes the magnitude STFT of signal with a periodic Hann window,
// spreading frames over a worker pool
func (s *STFT) Compute(signal []float64, p FrameParams) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	padded, numFrames := p.framing(signal)
	if numFrames <= 0 {
		return nil, fmt.Errorf("signal too short for fft size %d", p.FFTSize)
	}

	window, err := windowing.NewHann(p.WindowLength, false).Padded(p.FFTSize)
	if err != nil {
		return nil, err
	}

	freqBins := p.FFTSize/2 + 1
	magnitude := make([][]float64, numFrames)

	ForEachFrame(numFrames, func() func(frameIdx int) {
		frameBuffer := make([]float64, p.FFTSize)
		return func(frameIdx int) {
			start := frameIdx * p.HopSize
			for i := range frameBuffer {
				frameBuffer[i] = padded[start+i] * window[i]
			}

			fftResult := s.fft.Compute(frameBuffer)
			row := make([]float64, freqBins)
			for i := range freqBins {
				row[i] = cmplx.Abs(fftResult[i])
			}
			magnitude[frameIdx] = row
		}
	})

	return &STFTResult{
		Magnitude:  magnitude,
		TimeFrames: numFrames,
		FreqBins:   freqBins,
		FFTSize:    p.FFTSize,
		HopSize:    p.HopSize,
	}, nil
}

// Autocorrelation computes a short-time autocorrelation: every Hann-windowed
// frame of WindowLength samples is autocorrelated for lags 0..WindowLength-1
// and normalised by its largest absolute value. FFTSize is ignored beyond
// framing; frames are padded internally for a linear correlation.
func (s *STFT) Autocorrelation(signal []float64, p FrameParams) ([][]float64, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	p.FFTSize = p.WindowLength
	if err := p.validate(); err != nil {
		return nil, err
	}

	padded, numFrames := p.framing(signal)
	if numFrames <= 0 {
		return nil, fmt.Errorf("signal too short for window length %d", p.WindowLength)
	}

	window := windowing.NewHann(p.WindowLength, false)
	lags := make([][]float64, numFrames)

	ForEachFrame(numFrames, func() func(frameIdx int) {
		frameBuffer := make([]float64, p.WindowLength)
		return func(frameIdx int) {
			start := frameIdx * p.HopSize
			copy(frameBuffer, padded[start:start+p.WindowLength])
			if err := window.ApplyInPlace(frameBuffer); err != nil {
				return // lengths match by construction
			}

			acf := s.fft.Autocorrelate(frameBuffer, p.WindowLength)
			peak := 0.0
			for _, v := range acf {
				if a := abs(v); a > peak {
					peak = a
				}
			}
			if peak > 0 {
				for i := range acf {
					acf[i] /= peak
				}
			}
			lags[frameIdx] = acf
		}
	})

	return lags, nil
}

// ForEachFrame runs work for every frame index in [0, numFrames) on a pool of
// workers sized to the workload
func ForEachFrame(numFrames int, newWorker func() func(frameIdx int)) {
	common.ForEach(numFrames, 0, newWorker)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
