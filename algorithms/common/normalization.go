package common

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// NormalizationType defines normalization method
type NormalizationType int

const (
	Peak NormalizationType = iota
	MinMax
	ZScore
)

// Normalizer rescales signals for rendering and display
type Normalizer struct {
	method NormalizationType
}

// NewNormalizer creates a new normalizer
func NewNormalizer(method NormalizationType) *Normalizer {
	return &Normalizer{method: method}
}

// Normalize returns a rescaled copy of signal. Silent or constant signals
// are returned unchanged.
func (n *Normalizer) Normalize(signal []float64) []float64 {
	if len(signal) == 0 {
		return signal
	}
	switch n.method {
	case MinMax:
		return minMaxNormalize(signal)
	case ZScore:
		return zScoreNormalize(signal)
	default:
		return peakNormalize(signal, 1)
	}
}

// peakNormalize scales so the largest absolute value equals target
func peakNormalize(signal []float64, target float64) []float64 {
	peak := 0.0
	for _, v := range signal {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak < 1e-10 {
		return signal
	}
	return Scale(signal, target/peak)
}

// minMaxNormalize maps the signal range onto [0, 1]
func minMaxNormalize(signal []float64) []float64 {
	lo, hi := signal[0], signal[0]
	for _, v := range signal[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo < 1e-10 {
		return signal
	}

	out := make([]float64, len(signal))
	for i, v := range signal {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}

// zScoreNormalize normalizes to zero mean and unit variance
func zScoreNormalize(signal []float64) []float64 {
	mean, std := stat.PopMeanStdDev(signal, nil)
	if std < 1e-10 {
		return signal
	}

	out := make([]float64, len(signal))
	for i, v := range signal {
		out[i] = (v - mean) / std
	}
	return out
}

// NormalizeDB peak-normalizes signal to targetDB dBFS
func (n *Normalizer) NormalizeDB(signal []float64, targetDB float64) []float64 {
	if len(signal) == 0 {
		return signal
	}
	return peakNormalize(signal, math.Pow(10, targetDB/20))
}

// Mix adds b to a scaled by gain; the result has the length of the longer input
func Mix(a, b []float64, gain float64) []float64 {
	out := make([]float64, max(len(a), len(b)))
	copy(out, a)
	for i, v := range b {
		out[i] += gain * v
	}
	return out
}
