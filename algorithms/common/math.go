package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Numeric helpers shared by the novelty, tempo, beat and rhythm stages.
// Everything here returns a new slice; inputs are never modified.

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// Sum returns the sum of data
func Sum(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Sum(data)
}

// Max returns the largest value of data, or 0 for an empty slice
func Max(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Max(data)
}

// ArgMax returns the index of the first maximum of data, or -1 for an empty slice
func ArgMax(data []float64) int {
	if len(data) == 0 {
		return -1
	}
	return floats.MaxIdx(data)
}

// LogCompress applies L(x) = log(1 + gamma*x) element-wise
func LogCompress(data []float64, gamma float64) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = math.Log1p(gamma * v)
	}
	return out
}

// FirstOrderDiff returns x[i+1] - x[i]; the result is one element shorter
func FirstOrderDiff(data []float64) []float64 {
	if len(data) < 2 {
		return []float64{}
	}
	out := make([]float64, len(data)-1)
	for i := range out {
		out[i] = data[i+1] - data[i]
	}
	return out
}

// HalfWaveRectify keeps the positive part of every value
func HalfWaveRectify(data []float64) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		if v > 0 {
			out[i] = v
		}
	}
	return out
}

// Abs returns |x| element-wise
func Abs(data []float64) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = math.Abs(v)
	}
	return out
}

// Scale returns data multiplied by s
func Scale(data []float64, s float64) []float64 {
	out := make([]float64, len(data))
	copy(out, data)
	floats.Scale(s, out)
	return out
}

// ColumnSums sums a [row][col] matrix over its rows, producing one value per column
func ColumnSums(matrix [][]float64) []float64 {
	if len(matrix) == 0 {
		return []float64{}
	}
	sums := make([]float64, len(matrix[0]))
	for _, row := range matrix {
		floats.Add(sums, row[:len(sums)])
	}
	return sums
}

// FramedRMS computes root-mean-square energy over frames of frameLength
// samples starting every hopLength samples. Frames that run past the end of
// the signal are implicitly zero-padded, so every frame is normalised by
// frameLength and there are ceil(len/hop) frames.
// A prefix sum of squares keeps this linear in the signal length even for
// segment-sized frames of several seconds.
func FramedRMS(signal []float64, frameLength, hopLength int) []float64 {
	if len(signal) == 0 || frameLength <= 0 || hopLength <= 0 {
		return []float64{}
	}

	prefix := make([]float64, len(signal)+1)
	for i, v := range signal {
		prefix[i+1] = prefix[i] + v*v
	}

	numFrames := (len(signal) + hopLength - 1) / hopLength
	out := make([]float64, numFrames)
	for i := range numFrames {
		start := i * hopLength
		end := min(start+frameLength, len(signal))
		energy := prefix[end] - prefix[start]
		if energy < 0 {
			energy = 0 // rounding in the prefix sum
		}
		out[i] = math.Sqrt(energy / float64(frameLength))
	}
	return out
}

// FramesToTime converts a frame index to seconds
func FramesToTime(frame, hopLength, sampleRate int) float64 {
	return float64(frame) * float64(hopLength) / float64(sampleRate)
}

// TimeToFrames converts seconds to the frame index that contains them
func TimeToFrames(seconds float64, hopLength, sampleRate int) int {
	return int(math.Floor(seconds * float64(sampleRate) / float64(hopLength)))
}

// SecondsToMs converts seconds to whole milliseconds, rounding to nearest
func SecondsToMs(seconds float64) int {
	return int(math.Round(seconds * 1000))
}

// Mod wraps a into [0, n) for n > 0
func Mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
