package transcode

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavPCMFormat = 1

// ReadWAV decodes a PCM WAV file into samples scaled to [-1, 1]
func ReadWAV(filename string) (*AudioData, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", filename)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read PCM data: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("WAV file has no channel information: %s", filename)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(decoder.BitDepth)
	}
	scale := fullScale(bitDepth)

	pcm := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		pcm[i] = float64(v) / scale
	}

	a := NewAudioData(pcm, buf.Format.SampleRate, buf.Format.NumChannels)
	a.Metadata = &AudioMetadata{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		Codec:      "pcm",
		Duration:   a.Seconds(),
		Format:     "wav",
	}
	return a, nil
}

// WriteWAV encodes samples in [-1, 1] as PCM with the given bit depth.
// Samples outside the range are clipped.
func WriteWAV(filename string, a *AudioData, bitDepth int) error {
	if a == nil || a.SampleRate <= 0 {
		return fmt.Errorf("audio data must have a positive sample rate")
	}
	if bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	channels := max(a.Channels, 1)

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	scale := fullScale(bitDepth)
	data := make([]int, len(a.PCM))
	for i, v := range a.PCM {
		v = math.Max(-1, math.Min(1, v))
		data[i] = int(math.Round(v * (scale - 1)))
	}

	enc := wav.NewEncoder(f, a.SampleRate, bitDepth, channels, wavPCMFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: a.SampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write PCM data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}
	return nil
}

// fullScale is the magnitude of the most negative sample at bitDepth
func fullScale(bitDepth int) float64 {
	if bitDepth <= 0 {
		bitDepth = 16
	}
	return float64(int64(1) << (bitDepth - 1))
}
