package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/RyanBlaney/sonido-rhythm/algorithms/novelty"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/tempo"
	"github.com/RyanBlaney/sonido-rhythm/analysis"
)

func testResult() *analysis.Result {
	values := make([]float64, 400)
	for i := 25; i < len(values); i += 50 {
		values[i] = 1
	}
	return &analysis.Result{
		Tempo:          120,
		Phase:          0.25,
		BeatTimes:      []float64{0.25, 0.75, 1.25, 1.75, 2.25, 2.75, 3.25, 3.75, 4.25},
		RhythmicOnsets: []float64{0.25, 1.0, 2.25},
		Duration:       4,
		Novelty:        novelty.NewFunction(values, 100, 4, 1, 4),
	}
}

type midiNote struct {
	micros int64
	key    uint8
}

func TestBuildMIDI(t *testing.T) {
	opts := DefaultMIDIOptions()
	s, err := BuildMIDI(testResult(), opts)
	require.NoError(t, err)
	require.Len(t, s.Tracks, 1)

	var bpm float64
	var notes []midiNote
	var absTicks int64
	for _, ev := range s.Tracks[0] {
		absTicks += int64(ev.Delta)
		var ch, key, vel uint8
		switch {
		case ev.Message.GetMetaTempo(&bpm):
		case ev.Message.GetNoteOn(&ch, &key, &vel):
			assert.Equal(t, uint8(drumChannel), ch)
			assert.Equal(t, opts.Velocity, vel)
			notes = append(notes, midiNote{micros: s.TimeAt(absTicks), key: key})
		}
	}

	assert.Equal(t, 120.0, bpm)
	// the beat past the duration is dropped
	require.Len(t, notes, 8+3)

	kicks := 0
	for _, n := range notes {
		if n.key == opts.OnsetKey {
			kicks++
		}
	}
	assert.Equal(t, 3, kicks)
	assert.InDelta(t, 250000, notes[0].micros, 1000)
	assert.InDelta(t, 250000, notes[1].micros, 1000)
	assert.InDelta(t, 3750000, notes[len(notes)-1].micros, 1000)

	_, err = BuildMIDI(&analysis.Result{}, opts)
	assert.Error(t, err)
}

func TestWriteMIDI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rhythm.mid")
	require.NoError(t, WriteMIDI(path, testResult(), DefaultMIDIOptions()))

	s, err := smf.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, smf.MetricTicks(960), s.TimeFormat)
	assert.Len(t, s.Tracks, 1)
}

func TestTicks(t *testing.T) {
	assert.Equal(t, uint32(0), ticks(-1, 120, 960))
	assert.Equal(t, uint32(1920), ticks(1, 120, 960))
	assert.Equal(t, uint32(960), ticks(0.5, 120, 960))
}

func testTempogram() *tempo.Tempogram {
	// autocorrelation-style labels, descending BPM
	bpm := []float64{600, 300, 200, 150, 120}
	strength := make([][]float64, 1300)
	for i := range strength {
		strength[i] = []float64{0, 0.1, 0.2, 0.3, float64(i % 7)}
	}
	return &tempo.Tempogram{Strength: strength, BPM: bpm, FrameRate: 100}
}

func TestTempogramGrid(t *testing.T) {
	g := newTempogramGrid(testTempogram(), 400)
	c, r := g.Dims()
	assert.Equal(t, 3, g.step)
	assert.Equal(t, 434, c)
	assert.Equal(t, 4, r)

	assert.Equal(t, []float64{120, 150, 200, 300}, []float64{g.Y(0), g.Y(1), g.Y(2), g.Y(3)})
	assert.Equal(t, 0.03, g.X(1))
	assert.Equal(t, float64(3%7), g.Z(1, 0))
	assert.Equal(t, 0.3, g.Z(1, 1))
}

func TestPlots(t *testing.T) {
	dir := t.TempDir()

	tgPath := filepath.Join(dir, "tempogram.png")
	require.NoError(t, PlotTempogram(tgPath, testTempogram(), 0))
	info, err := os.Stat(tgPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	resPath := filepath.Join(dir, "analysis.svg")
	require.NoError(t, PlotAnalysis(resPath, testResult()))
	info, err = os.Stat(resPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	assert.Error(t, PlotTempogram(tgPath, nil, 0))
	assert.Error(t, PlotAnalysis(resPath, &analysis.Result{}))
}
