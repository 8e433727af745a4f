// Package cli implements the sonido-rhythm command line.
package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-rhythm/algorithms/beat"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/novelty"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/rhythm"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/tempo"
	"github.com/RyanBlaney/sonido-rhythm/analysis"
	"github.com/RyanBlaney/sonido-rhythm/logging"
	"github.com/RyanBlaney/sonido-rhythm/transcode"
)

// options holds the persistent flags shared by every subcommand
type options struct {
	configPath string
	verbose    bool
	logLevel   string

	workers  int
	duration float64
	bpm      int

	novelty string
	tempo   string
	beat    string
	rhythm  string

	ffmpegPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "sonido-rhythm",
		Short: "Tempo, beat and rhythm tracking for audio files",
		Long: `sonido-rhythm estimates the tempo of a recording, aligns a beat grid to it
and picks the onsets that carry its rhythm. WAV files are read natively;
other formats are decoded with ffmpeg.`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "analysis config file (.yaml, .yml or .json)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.IntVar(&opts.workers, "workers", 0, "worker goroutines, 0 = one per CPU")
	pf.Float64Var(&opts.duration, "duration", 0, "analyse only the first seconds of audio")
	pf.IntVar(&opts.bpm, "bpm", 0, "use a fixed tempo instead of estimating it")
	pf.StringVar(&opts.novelty, "novelty", "", fmt.Sprintf("novelty function %v", novelty.Approaches))
	pf.StringVar(&opts.tempo, "tempo-approach", "", fmt.Sprintf("tempogram %v", tempo.Approaches))
	pf.StringVar(&opts.beat, "beat", "", fmt.Sprintf("beat tracking %v", beat.Approaches))
	pf.StringVar(&opts.rhythm, "rhythm", "", fmt.Sprintf("rhythm tracking %v", rhythm.Approaches))
	pf.StringVar(&opts.ffmpegPath, "ffmpeg", "ffmpeg", "ffmpeg binary for non-WAV input")

	cmd.AddCommand(
		newAnalyzeCmd(opts),
		newTempoCmd(opts),
		newBeatsCmd(opts),
		newRhythmCmd(opts),
		newTempogramCmd(opts),
		newClickCmd(opts),
	)
	return cmd
}

// Execute runs the root command
func Execute() {
	cobra.CheckErr(newRootCmd().Execute())
}

// setupLogger installs the global logger on stderr. Components capture the
// global logger when they are created, so this runs first.
func (o *options) setupLogger(cmd *cobra.Command) {
	logger := logging.NewWriterLogger(cmd.ErrOrStderr(), cmd.ErrOrStderr())
	level := logging.ParseLevel(o.logLevel)
	if o.verbose {
		level = logging.DebugLevel
	}
	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)
}

// config loads the config file, if any, and applies the flags that were set
func (o *options) config(cmd *cobra.Command) (*analysis.Config, error) {
	config := analysis.DefaultConfig()
	if o.configPath != "" {
		loaded, err := analysis.LoadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		config.Workers = o.workers
	}
	if flags.Changed("duration") {
		config.DurationSeconds = o.duration
	}
	if flags.Changed("bpm") {
		config.Tempo.BPM = o.bpm
	}
	if flags.Changed("novelty") {
		config.Novelty.Approach = novelty.Approach(o.novelty)
	}
	if flags.Changed("tempo-approach") {
		config.Tempo.Approach = tempo.Approach(o.tempo)
	}
	if flags.Changed("beat") {
		config.Beat.Approach = beat.Approach(o.beat)
	}
	if flags.Changed("rhythm") {
		config.Rhythm.Approach = rhythm.Approach(o.rhythm)
	}
	return config, nil
}

// session is the state a subcommand works with: a configured analyzer and
// the mono audio it analyses
type session struct {
	analyzer *analysis.Analyzer
	audio    *transcode.AudioData
	source   string
	command  string
	logger   logging.Logger
}

func (o *options) newSession(cmd *cobra.Command, path string) (*session, error) {
	o.setupLogger(cmd)

	config, err := o.config(cmd)
	if err != nil {
		return nil, err
	}
	analyzer, err := analysis.NewAnalyzer(config)
	if err != nil {
		return nil, err
	}

	decoderConfig := transcode.DefaultDecoderConfig()
	decoderConfig.TargetSampleRate = config.SampleRate
	decoderConfig.TargetChannels = 1
	decoderConfig.FFmpegPath = o.ffmpegPath
	if config.DurationSeconds > 0 {
		decoderConfig.MaxDuration = time.Duration(config.DurationSeconds * float64(time.Second))
	}

	audio, err := transcode.NewDecoder(decoderConfig).Load(ctxOf(cmd), path)
	if err != nil {
		return nil, err
	}

	s := &session{
		analyzer: analyzer,
		audio:    audio.Mono(),
		source:   filepath.Base(path),
		command:  cmd.Name(),
		logger:   logging.WithFields(logging.Fields{"component": "cli", "command": cmd.Name()}),
	}
	s.logger.Debug("Loaded audio", logging.Fields{
		"source":      s.source,
		"sample_rate": s.audio.SampleRate,
		"seconds":     s.audio.Seconds(),
	})
	return s, nil
}

func (s *session) analyze(ctx context.Context) (*analysis.Result, error) {
	ctx = logging.ContextWithFields(ctx, logging.Fields{"command": s.command})
	return s.analyzer.Analyze(ctx, analysis.Input{
		Samples:    s.audio.PCM,
		SampleRate: s.audio.SampleRate,
		Source:     s.source,
	})
}

func (s *session) novelty() (*novelty.Function, error) {
	return s.analyzer.Novelty(s.audio.PCM, s.audio.SampleRate)
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
