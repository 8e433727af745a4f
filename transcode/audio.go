package transcode

import (
	"time"
)

// AudioData represents decoded audio data. PCM is interleaved when Channels > 1.
type AudioData struct {
	PCM        []float64      `json:"-"`
	SampleRate int            `json:"sample_rate"`
	Channels   int            `json:"channels"`
	Duration   time.Duration  `json:"duration"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   *AudioMetadata `json:"metadata,omitempty"`
}

// NewAudioData wraps mono or interleaved samples and derives the duration
func NewAudioData(pcm []float64, sampleRate, channels int) *AudioData {
	if channels <= 0 {
		channels = 1
	}
	a := &AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   channels,
		Timestamp:  time.Now(),
	}
	a.Duration = framesDuration(len(pcm)/channels, sampleRate)
	return a
}

func framesDuration(frames, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

// Seconds returns the exact duration in seconds computed from the sample count
func (a *AudioData) Seconds() float64 {
	if a.SampleRate <= 0 || a.Channels <= 0 {
		return 0
	}
	return float64(len(a.PCM)/a.Channels) / float64(a.SampleRate)
}

// Mono returns a single-channel copy with every frame averaged over channels.
// Mono input is returned as is.
func (a *AudioData) Mono() *AudioData {
	if a.Channels <= 1 {
		return a
	}

	frames := len(a.PCM) / a.Channels
	mono := make([]float64, frames)
	for i := range frames {
		sum := 0.0
		for ch := range a.Channels {
			sum += a.PCM[i*a.Channels+ch]
		}
		mono[i] = sum / float64(a.Channels)
	}

	out := NewAudioData(mono, a.SampleRate, 1)
	out.Timestamp = a.Timestamp
	out.Metadata = a.Metadata
	return out
}

// Truncate returns the first seconds of audio. Non-positive or overlong
// durations return the audio unchanged.
func (a *AudioData) Truncate(seconds float64) *AudioData {
	if seconds <= 0 || a.SampleRate <= 0 {
		return a
	}
	frames := int(seconds * float64(a.SampleRate))
	if frames*a.Channels >= len(a.PCM) {
		return a
	}

	out := NewAudioData(a.PCM[:frames*a.Channels], a.SampleRate, a.Channels)
	out.Timestamp = a.Timestamp
	out.Metadata = a.Metadata
	return out
}
