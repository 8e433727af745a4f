package temporal

import (
	"github.com/RyanBlaney/sonido-rhythm/algorithms/common"
)

// Energy computes frame-level and segment-level RMS energy curves
type Energy struct {
	frameSize  int
	hopSize    int
	sampleRate int
}

// NewEnergy creates a new energy calculator
func NewEnergy(frameSize, hopSize, sampleRate int) *Energy {
	return &Energy{
		frameSize:  frameSize,
		hopSize:    hopSize,
		sampleRate: sampleRate,
	}
}

// ComputeRMS returns one RMS value per hop; frames start at every multiple of
// the hop size and run frameSize samples (zero-padded at the end)
func (e *Energy) ComputeRMS(signal []float64) []float64 {
	return common.FramedRMS(signal, e.frameSize, e.hopSize)
}

// ComputeSegmentRMS computes a coarse RMS curve whose frames span
// segmentSeconds of audio while still advancing by the hop size, so that the
// curve stays indexed in analysis frames
func (e *Energy) ComputeSegmentRMS(signal []float64, segmentSeconds float64) []float64 {
	segmentSize := int(segmentSeconds * float64(e.sampleRate))
	if segmentSize <= 0 {
		return []float64{}
	}
	return common.FramedRMS(signal, segmentSize, e.hopSize)
}

// FrameTime converts an RMS frame index to seconds
func (e *Energy) FrameTime(frame int) float64 {
	return common.FramesToTime(frame, e.hopSize, e.sampleRate)
}
