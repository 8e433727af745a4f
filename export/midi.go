// Package export writes analysis results as Standard MIDI Files and plots.
package export

import (
	"fmt"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/RyanBlaney/sonido-rhythm/analysis"
)

// General MIDI percussion channel (10, zero based)
const drumChannel = 9

// MIDIOptions selects the notes written for beats and rhythmic onsets
type MIDIOptions struct {
	Resolution   uint16  `json:"resolution"` // ticks per quarter note
	BeatKey      uint8   `json:"beat_key"`
	OnsetKey     uint8   `json:"onset_key"`
	Velocity     uint8   `json:"velocity"`
	NoteDuration float64 `json:"note_duration"` // seconds
}

// DefaultMIDIOptions writes beats as closed hi-hats and rhythmic onsets as
// kick drums
func DefaultMIDIOptions() MIDIOptions {
	return MIDIOptions{
		Resolution:   960,
		BeatKey:      42,
		OnsetKey:     36,
		Velocity:     100,
		NoteDuration: 0.05,
	}
}

type noteEvent struct {
	tick uint32
	on   bool
	key  uint8
}

// ticks converts seconds to ticks at a constant tempo
func ticks(seconds float64, bpm int, resolution uint16) uint32 {
	if seconds <= 0 {
		return 0
	}
	return uint32(math.Round(seconds * float64(bpm) / 60 * float64(resolution)))
}

// BuildMIDI renders the beat grid and the rhythmic onsets of res on the
// percussion channel of a single-track file at the detected tempo
func BuildMIDI(res *analysis.Result, opts MIDIOptions) (*smf.SMF, error) {
	if res == nil || res.Tempo <= 0 {
		return nil, fmt.Errorf("result must have a positive tempo")
	}
	if opts.Resolution == 0 {
		opts.Resolution = 960
	}

	length := ticks(opts.NoteDuration, res.Tempo, opts.Resolution)
	length = max(length, 1)

	events := make([]noteEvent, 0, 2*(len(res.BeatTimes)+len(res.RhythmicOnsets)))
	add := func(times []float64, key uint8) {
		for _, t := range times {
			if t < 0 || t > res.Duration {
				continue
			}
			start := ticks(t, res.Tempo, opts.Resolution)
			events = append(events,
				noteEvent{tick: start, on: true, key: key},
				noteEvent{tick: start + length, on: false, key: key})
		}
	}
	add(res.BeatTimes, opts.BeatKey)
	add(res.RhythmicOnsets, opts.OnsetKey)

	// note-offs first on equal ticks so repeated keys retrigger
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return !events[i].on && events[j].on
	})

	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName("rhythm"))
	tr.Add(0, smf.MetaTempo(float64(res.Tempo)))
	tr.Add(0, smf.MetaMeter(4, 4))

	var last uint32
	for _, e := range events {
		delta := e.tick - last
		last = e.tick
		if e.on {
			tr.Add(delta, midi.NoteOn(drumChannel, e.key, opts.Velocity))
		} else {
			tr.Add(delta, midi.NoteOff(drumChannel, e.key))
		}
	}
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(opts.Resolution)
	if err := s.Add(tr); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}
	return s, nil
}

// WriteMIDI writes res to path as a Standard MIDI File
func WriteMIDI(path string, res *analysis.Result, opts MIDIOptions) error {
	s, err := BuildMIDI(res, opts)
	if err != nil {
		return err
	}
	if err := s.WriteFile(path); err != nil {
		return fmt.Errorf("failed to write MIDI file: %w", err)
	}
	return nil
}
