package spectral

import (
	"github.com/mjibson/go-dsp/fft"
)

// FFT wraps mjibson/go-dsp so the rest of the module does not import it directly
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the Fast Fourier Transform of a real signal.
// go-dsp handles all sizes, including non-power-of-2.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// ComputeInverseReal computes the inverse FFT and returns the real part only
func (f *FFT) ComputeInverseReal(x []complex128) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	result := fft.IFFT(x)
	realResult := make([]float64, len(result))
	for i, val := range result {
		realResult[i] = real(val)
	}
	return realResult
}

// Autocorrelate returns the linear (non-circular) autocorrelation of x for
// lags 0..maxLag-1, computed as IFFT(|FFT(x padded to 2n)|^2).
func (f *FFT) Autocorrelate(x []float64, maxLag int) []float64 {
	if len(x) == 0 || maxLag <= 0 {
		return []float64{}
	}

	padded := make([]float64, 2*len(x))
	copy(padded, x)

	spectrum := f.Compute(padded)
	for i, c := range spectrum {
		spectrum[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}

	full := f.ComputeInverseReal(spectrum)
	maxLag = min(maxLag, len(x))
	out := make([]float64, maxLag)
	copy(out, full[:maxLag])
	return out
}
