package transcode

import (
	"context"
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonoAveragesChannels(t *testing.T) {
	a := NewAudioData([]float64{1, 0, 0.5, 0.5, -1, 1}, 10, 2)
	mono := a.Mono()
	assert.Equal(t, 1, mono.Channels)
	assert.Equal(t, []float64{0.5, 0.5, 0}, mono.PCM)

	same := NewAudioData([]float64{1, 2}, 10, 1)
	assert.Same(t, same, same.Mono())
}

func TestTruncate(t *testing.T) {
	a := NewAudioData(make([]float64, 1000), 100, 1)
	assert.Equal(t, 10*time.Second, a.Duration)

	short := a.Truncate(2.5)
	assert.Len(t, short.PCM, 250)
	assert.InDelta(t, 2.5, short.Seconds(), 1e-12)

	assert.Same(t, a, a.Truncate(0))
	assert.Same(t, a, a.Truncate(20))

	stereo := NewAudioData(make([]float64, 400), 100, 2)
	assert.Len(t, stereo.Truncate(1).PCM, 200)
}

func TestWAVRoundTrip(t *testing.T) {
	const rate = 8000
	pcm := make([]float64, rate/4)
	for i := range pcm {
		pcm[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/rate)
	}
	pcm[10] = 3 // clipped

	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, WriteWAV(path, NewAudioData(pcm, rate, 1), 16))

	got, err := ReadWAV(path)
	require.NoError(t, err)
	assert.Equal(t, rate, got.SampleRate)
	assert.Equal(t, 1, got.Channels)
	require.Len(t, got.PCM, len(pcm))
	assert.InDelta(t, 1.0, got.PCM[10], 1e-4)
	for i := 20; i < 40; i++ {
		assert.InDelta(t, pcm[i], got.PCM[i], 1e-4)
	}
	assert.Equal(t, "wav", got.Metadata.Format)
}

func TestWriteWAVRejectsBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	assert.Error(t, WriteWAV(path, NewAudioData([]float64{0}, 0, 1), 16))
	assert.Error(t, WriteWAV(path, NewAudioData([]float64{0}, 8000, 1), 12))
}

func TestLoadReadsWAVWithoutFFmpeg(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, WriteWAV(path, NewAudioData(make([]float64, 800), 8000, 1), 16))

	d := NewDecoder(&DecoderConfig{FFmpegPath: "/nonexistent/ffmpeg", FFprobePath: "/nonexistent/ffprobe", TargetSampleRate: 8000, TargetChannels: 1})
	a, err := d.Load(context.Background(), path)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, a.Seconds(), 1e-12)

	_, err = d.Load(context.Background(), filepath.Join(t.TempDir(), "song.mp3"))
	assert.Error(t, err)
}

func TestBytesToFloat64(t *testing.T) {
	data := make([]byte, 0, 20)
	for _, v := range []float64{0.25, -1} {
		data = binary.LittleEndian.AppendUint64(data, math.Float64bits(v))
	}
	data = append(data, 1, 2, 3)

	assert.Equal(t, []float64{0.25, -1}, bytesToFloat64(data))
	assert.Nil(t, bytesToFloat64([]byte{1, 2}))
}

func TestBuildFFmpegArgs(t *testing.T) {
	cfg := DefaultDecoderConfig()
	d := NewDecoder(cfg)
	args := d.buildFFmpegArgs(&AudioMetadata{SampleRate: 48000})
	assert.Equal(t, []string{
		"-f", "f64le", "-ac", "1", "-ar", "44100",
		"-af", "aresample=resampler=soxr:precision=20",
		"-v", "error",
	}, args)

	cfg.EnableNormalization = true
	cfg.MaxDuration = 30 * time.Second
	args = d.buildFFmpegArgs(&AudioMetadata{SampleRate: 44100})
	assert.Equal(t, []string{
		"-f", "f64le", "-ac", "1", "-ar", "44100",
		"-af", "loudnorm=I=-16.0:TP=-1.0:LRA=8.0",
		"-t", "30.00",
		"-v", "error",
	}, args)
}

func TestParseFFprobeOutput(t *testing.T) {
	meta, err := parseFFprobeOutput([]byte(`{"streams":[{"codec_type":"audio","codec_name":"mp3",
		"sample_rate":"48000","channels":2,"duration":"12.5","bit_rate":"320000","codec_long_name":"MP3"}]}`))
	require.NoError(t, err)
	assert.Equal(t, &AudioMetadata{SampleRate: 48000, Channels: 2, Codec: "mp3", Duration: 12.5, Bitrate: 320000, Format: "MP3"}, meta)

	_, err = parseFFprobeOutput([]byte(`{"streams":[]}`))
	assert.Error(t, err)
	_, err = parseFFprobeOutput([]byte(`{"streams":[{"codec_type":"video","channels":2}]}`))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, NewDecoder(nil).ValidateConfig())
	assert.Error(t, NewDecoder(&DecoderConfig{TargetSampleRate: 0, TargetChannels: 1}).ValidateConfig())
	assert.Error(t, NewDecoder(&DecoderConfig{TargetSampleRate: 44100, TargetChannels: 9}).ValidateConfig())
}
