package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"spectra/internal/analysis"
	"spectra/internal/config"
	applog "spectra/internal/log"
	"spectra/internal/spectrum"
	"spectra/internal/wave"
	"spectra/pkg/build"
)

// options collects flag values. Flags that were set on the command line
// override the loaded configuration; the rest leave it untouched.
type options struct {
	configPath string
	logLevel   string
	engine     string
	seconds    int
	channel    int
	parallel   bool
	maxPoints  int
	wsAddr     string
	udpTarget  string
	sendRate   float64
	loop       bool
	plain      bool

	cfg *config.Config
}

// Execute runs the command line against os.Args. ctx is cancelled on
// SIGINT/SIGTERM by the caller.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	buildInfo := build.GetBuildFlags()
	o := &options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         build.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.resolve(cmd)
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// Global Configuration
	rootCmd.PersistentFlags().StringVar(&o.configPath, "config", "",
		"Path to a YAML config file (default: "+config.DefaultConfigFile+" if present)")
	rootCmd.PersistentFlags().StringVar(&o.logLevel, "log-level", config.DefaultLogLevel,
		"Log level: debug, info, warn, error")

	// Analysis Configuration
	rootCmd.PersistentFlags().IntVarP(&o.seconds, "seconds", "s", config.DefaultSeconds,
		"Seconds of audio per analysed block")
	rootCmd.PersistentFlags().IntVarP(&o.channel, "channel", "c", config.DefaultChannel,
		"Channel to analyse (-1 for all channels)")
	rootCmd.PersistentFlags().BoolVarP(&o.parallel, "parallel", "p", config.DefaultParallel,
		"Transform channels concurrently (fft engine)")
	rootCmd.PersistentFlags().IntVar(&o.maxPoints, "max-points", config.DefaultMaxPoints,
		"Largest padded transform buffer, summed over channels")

	rootCmd.AddCommand(
		newInfoCommand(o),
		newTransformCommand(o, config.EngineDFT, "Print the discrete Fourier transform of the first block"),
		newTransformCommand(o, config.EngineFFT, "Print the fast Fourier transform of the first block"),
		newBandsCommand(o),
		newServeCommand(o),
	)

	return rootCmd
}

// resolve loads the configuration and applies explicitly set flags to it.
func (o *options) resolve(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("engine") {
		cfg.Analysis.Engine = o.engine
	}
	if flags.Changed("seconds") {
		cfg.Analysis.Seconds = o.seconds
	}
	if flags.Changed("channel") {
		cfg.Analysis.Channel = o.channel
	}
	if flags.Changed("parallel") {
		cfg.Analysis.Parallel = o.parallel
	}
	if flags.Changed("max-points") {
		cfg.Analysis.MaxPoints = o.maxPoints
	}
	if flags.Changed("ws-addr") {
		cfg.Transport.WebSocketAddr = o.wsAddr
	}
	if flags.Changed("udp-target") {
		cfg.Transport.UDPTarget = o.udpTarget
	}
	if flags.Changed("send-rate") {
		cfg.Transport.SendRate = o.sendRate
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if err := applog.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}

	o.cfg = cfg
	return nil
}

// analyzer builds an Analyzer for engine, or for the configured engine when
// engine is empty.
func (o *options) analyzer(engine string, opts analysis.Options) (*analysis.Analyzer, error) {
	a := o.cfg.Analysis
	if engine == "" {
		engine = a.Engine
	}
	e, err := analysis.NewEngine(engine, a.Parallel, a.MaxPoints)
	if err != nil {
		return nil, err
	}

	opts.Engine = e
	opts.Block = time.Duration(a.Seconds) * time.Second
	opts.Channel = a.Channel
	return analysis.New(opts)
}

func newInfoCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <file.wav>",
		Short: "Show the header of a WAVE file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := wave.Open(args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			f := c.Format()
			if o.plain {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), f.String())
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderHeader(args[0], f))
			return err
		},
	}
	cmd.Flags().BoolVar(&o.plain, "plain", false, "Print unstyled name/value lines")
	return cmd
}

// dftCostNote warns that the reference transform is quadratic in the block.
const dftCostNote = "\n\nThe DFT costs O(N²) per channel, N being the frames in a block: a one\n" +
	"second block at 44.1 kHz takes about 2·10⁹ operations per channel. Use\n" +
	"--channel to analyse one channel, or the fft command for long blocks."

func newTransformCommand(o *options, engine, short string) *cobra.Command {
	long := short + ".\n\nEach line holds the frequency (Hz), magnitude and phase (radians)\n" +
		"of one bin, for the first half of the bins of every selected channel."
	if engine == config.EngineDFT {
		long += dftCostNote
	}

	return &cobra.Command{
		Use:   engine + " <file.wav>",
		Short: short,
		Long:  long,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.analyzer(engine, analysis.Options{})
			if err != nil {
				return err
			}
			res, err := a.AnalyzeFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeSpectrum(cmd.OutOrStdout(), res)
		},
	}
}

func newBandsCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bands <file.wav>",
		Short: "Print per-band RMS magnitude for every block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.analyzer("", analysis.Options{})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.Stream(cmd.Context(), args[0], func(r *analysis.Result) error {
				return writeBands(out, r, r.Bands(o.cfg.Analysis.Bands))
			})
		},
	}
	cmd.Flags().StringVarP(&o.engine, "engine", "e", config.DefaultEngine,
		"Transform engine: fft, dft or gonum")
	return cmd
}

// writeSpectrum prints "frequency magnitude phase" for the leading half of
// the bins. Multi-channel results get a comment line per channel.
func writeSpectrum(w io.Writer, r *analysis.Result) error {
	s := r.Spectrum
	rate := r.SampleRate()
	for i, ch := range r.Channels {
		if len(r.Channels) > 1 {
			if _, err := fmt.Fprintf(w, "# channel %d\n", ch); err != nil {
				return err
			}
		}
		for k := range r.HalfBins() {
			_, err := fmt.Fprintf(w, "%.4f %.6f %.6f\n", s.Frequency(k, rate), s.Magnitude(k, i), s.Phase(k, i))
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func writeBands(w io.Writer, r *analysis.Result, energies [][]spectrum.BandEnergy) error {
	for i, ch := range r.Channels {
		if _, err := fmt.Fprintf(w, "# block %d (%s) channel %d\n", r.Index, r.Start, ch); err != nil {
			return err
		}
		for _, b := range energies[i] {
			if _, err := fmt.Fprintf(w, "%-10s %12.6f %6d\n", b.Name, b.Energy, b.Bins); err != nil {
				return err
			}
		}
	}
	return nil
}
