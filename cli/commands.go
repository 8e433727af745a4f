package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-rhythm/algorithms/beat"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/common"
	"github.com/RyanBlaney/sonido-rhythm/analysis"
	"github.com/RyanBlaney/sonido-rhythm/export"
	"github.com/RyanBlaney/sonido-rhythm/logging"
	"github.com/RyanBlaney/sonido-rhythm/transcode"
)

// artifacts are the optional files a command writes next to its output
type artifacts struct {
	json string
	midi string
	plot string
}

// write produces every requested artifact for res concurrently
func (a artifacts) write(res *analysis.Result, logger logging.Logger) error {
	var g errgroup.Group
	if a.json != "" {
		g.Go(func() error {
			data, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			return os.WriteFile(a.json, append(data, '\n'), 0o644)
		})
	}
	if a.midi != "" {
		g.Go(func() error {
			return export.WriteMIDI(a.midi, res, export.DefaultMIDIOptions())
		})
	}
	if a.plot != "" {
		g.Go(func() error {
			return export.PlotAnalysis(a.plot, res)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Debug("Wrote artifacts", logging.Fields{"json": a.json, "midi": a.midi, "plot": a.plot})
	return nil
}

func writeTimes(w io.Writer, times []float64) {
	for _, t := range times {
		fmt.Fprintf(w, "%.3f\n", t)
	}
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	var out artifacts

	cmd := &cobra.Command{
		Use:   "analyze <audio file>",
		Short: "Run the full rhythm analysis and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession(cmd, args[0])
			if err != nil {
				return err
			}
			res, err := s.analyze(ctxOf(cmd))
			if err != nil {
				return err
			}

			if out.json == "" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return fmt.Errorf("failed to encode result: %w", err)
				}
			}
			return out.write(res, s.logger)
		},
	}

	cmd.Flags().StringVarP(&out.json, "output", "o", "", "write the JSON result to a file instead of stdout")
	cmd.Flags().StringVar(&out.midi, "midi", "", "write beats and rhythmic onsets as a MIDI file")
	cmd.Flags().StringVar(&out.plot, "plot", "", "plot the novelty function with beats and onsets (.png, .svg, .pdf)")
	return cmd
}

func newTempoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tempo <audio file>",
		Short: "Print the dominant tempo in BPM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession(cmd, args[0])
			if err != nil {
				return err
			}
			fn, err := s.novelty()
			if err != nil {
				return err
			}
			bpm, err := s.analyzer.Tempo(fn)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), bpm)
			return nil
		},
	}
}

func newBeatsCmd(opts *options) *cobra.Command {
	var midiPath string

	cmd := &cobra.Command{
		Use:   "beats <audio file>",
		Short: "Print the beat grid, one time in seconds per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession(cmd, args[0])
			if err != nil {
				return err
			}
			fn, err := s.novelty()
			if err != nil {
				return err
			}
			bpm, err := s.analyzer.Tempo(fn)
			if err != nil {
				return err
			}
			grid, err := s.analyzer.BeatGrid(fn, bpm)
			if err != nil {
				return err
			}

			writeTimes(cmd.OutOrStdout(), grid)
			if midiPath == "" {
				return nil
			}
			return export.WriteMIDI(midiPath, &analysis.Result{
				Tempo:     bpm,
				BeatTimes: grid,
				Duration:  fn.Duration,
			}, export.DefaultMIDIOptions())
		},
	}

	cmd.Flags().StringVar(&midiPath, "midi", "", "write the beat grid as a MIDI file")
	return cmd
}

func newRhythmCmd(opts *options) *cobra.Command {
	var out artifacts

	cmd := &cobra.Command{
		Use:   "rhythm <audio file>",
		Short: "Print the rhythmic onsets, one time in seconds per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession(cmd, args[0])
			if err != nil {
				return err
			}
			res, err := s.analyze(ctxOf(cmd))
			if err != nil {
				return err
			}
			writeTimes(cmd.OutOrStdout(), res.RhythmicOnsets)
			return out.write(res, s.logger)
		},
	}

	cmd.Flags().StringVar(&out.midi, "midi", "", "write beats and rhythmic onsets as a MIDI file")
	cmd.Flags().StringVar(&out.plot, "plot", "", "plot the novelty function with beats and onsets (.png, .svg, .pdf)")
	return cmd
}

func newTempogramCmd(opts *options) *cobra.Command {
	var plotPath string
	var maxBPM float64

	cmd := &cobra.Command{
		Use:   "tempogram <audio file>",
		Short: "Plot the tempogram as a heat map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession(cmd, args[0])
			if err != nil {
				return err
			}
			fn, err := s.novelty()
			if err != nil {
				return err
			}
			tg, err := s.analyzer.Tempogram(fn)
			if err != nil {
				return err
			}
			return export.PlotTempogram(plotPath, tg, maxBPM)
		},
	}

	cmd.Flags().StringVar(&plotPath, "plot", "", "image file to write (.png, .svg, .pdf)")
	cmd.Flags().Float64Var(&maxBPM, "max-bpm", 400, "highest tempo shown, 0 shows every bin")
	_ = cmd.MarkFlagRequired("plot")
	return cmd
}

func newClickCmd(opts *options) *cobra.Command {
	var outPath string
	var mix bool
	var gain float64

	cmd := &cobra.Command{
		Use:   "click <audio file>",
		Short: "Render a click track on the detected beat grid as a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession(cmd, args[0])
			if err != nil {
				return err
			}
			fn, err := s.novelty()
			if err != nil {
				return err
			}
			bpm, err := s.analyzer.Tempo(fn)
			if err != nil {
				return err
			}
			grid, err := s.analyzer.BeatGrid(fn, bpm)
			if err != nil {
				return err
			}

			audio := s.audio.Truncate(s.analyzer.Config().DurationSeconds)
			signal := beat.RenderClickTrack(grid, audio.SampleRate, len(audio.PCM), beat.DefaultClickParams())
			if mix {
				signal = common.Mix(audio.PCM, signal, gain)
			}
			signal = common.NewNormalizer(common.Peak).NormalizeDB(signal, -1)

			s.logger.Debug("Rendered click track", logging.Fields{
				"tempo":  bpm,
				"clicks": len(grid),
				"mixed":  mix,
			})
			return transcode.WriteWAV(outPath, transcode.NewAudioData(signal, audio.SampleRate, 1), 16)
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "WAV file to write")
	cmd.Flags().BoolVar(&mix, "mix", false, "mix the clicks over the source audio")
	cmd.Flags().Float64Var(&gain, "click-gain", 0.5, "click level when mixing")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
