package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"binterp/internal/config"
	"binterp/internal/interp"
	"binterp/pkg/build"
)

// ParseArgs loads the configuration (defaults, optional YAML file, env
// overrides) and applies command line flags on top. Flags only override
// values the user actually set.
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetInfo()

	var (
		cfg        *config.Config
		configPath string

		inputDevice     int
		outputDevice    int
		channels        int
		sampleRate      float64
		framesPerBuffer int
		fftSize         int
		lowLatency      bool
		windowName      string

		lengthSeconds   float64
		varianceSeconds float64
		seed            int64

		record     bool
		outputFile string

		wsEnabled  bool
		udpEnabled bool
		udpTarget  string

		verbose bool
	)

	load := func(cmd *cobra.Command, command string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		loaded.Command = command

		flags := cmd.Flags()
		if flags.Changed("device") {
			loaded.Audio.InputDevice = inputDevice
		}
		if flags.Changed("output-device") {
			loaded.Audio.OutputDevice = outputDevice
		}
		if flags.Changed("channels") {
			loaded.Audio.Channels = channels
		}
		if flags.Changed("sample-rate") {
			loaded.Audio.SampleRate = sampleRate
		}
		if flags.Changed("frames-per-buffer") {
			loaded.Audio.FramesPerBuffer = framesPerBuffer
		}
		if flags.Changed("fft-size") {
			loaded.Audio.FFTSize = fftSize
		}
		if flags.Changed("low-latency") {
			loaded.Audio.LowLatency = lowLatency
		}
		if flags.Changed("window") {
			loaded.Audio.Window = windowName
		}
		if flags.Changed("length") {
			loaded.Interp.LengthSeconds = lengthSeconds
		}
		if flags.Changed("variance") {
			loaded.Interp.VarianceSeconds = varianceSeconds
		}
		if flags.Changed("seed") {
			loaded.Interp.Seed = seed
		}
		if flags.Changed("record") {
			loaded.Recording.Enabled = record
		}
		if flags.Changed("output") {
			loaded.Recording.OutputFile = outputFile
		}
		if flags.Changed("websocket") {
			loaded.Transport.WebSocketEnabled = wsEnabled
		}
		if flags.Changed("udp") {
			loaded.Transport.UDPEnabled = udpEnabled
		}
		if flags.Changed("udp-target") {
			loaded.Transport.UDPTargetAddress = udpTarget
		}
		if flags.Changed("verbose") {
			loaded.Debug = verbose
			loaded.LogLevel = "debug"
		}

		if loaded.Recording.Enabled && loaded.Recording.OutputFile == "" {
			loaded.Recording.OutputFile = "binterp-" +
				time.Now().UTC().Format("02-01-2006-150405") + ".wav"
		}

		if err := loaded.Validate(); err != nil {
			return err
		}

		cfg = loaded
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         build.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, "")
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, "list")
		},
	}
	rootCmd.AddCommand(listCmd)

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the engine with the interactive device and timing UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, "tui")
		},
	}
	rootCmd.AddCommand(tuiCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML configuration file")

	// Audio Device Configuration
	rootCmd.PersistentFlags().IntVarP(&inputDevice, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVar(&outputDevice, "output-device", config.DefaultDeviceID,
		"Output device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVarP(&channels, "channels", "c", config.DefaultChannels,
		"Number of stream channels (processing is mono)")
	rootCmd.PersistentFlags().Float64VarP(&sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	rootCmd.PersistentFlags().IntVarP(&fftSize, "fft-size", "f", config.DefaultFFTSize,
		"Spectral frame length in samples (power of two)")
	rootCmd.PersistentFlags().BoolVarP(&lowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")
	rootCmd.PersistentFlags().StringVarP(&windowName, "window", "w", "hann",
		"Analysis window function (hann, hamming, blackman, nuttall, ...)")

	// Interpolation Configuration
	rootCmd.PersistentFlags().Float64Var(&lengthSeconds, "length", interp.DefaultLengthSeconds,
		"Base interpolation length in seconds")
	rootCmd.PersistentFlags().Float64Var(&varianceSeconds, "variance", interp.DefaultVarianceSeconds,
		"Random interpolation duration variance in seconds")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0,
		"Random seed for reproducible interpolation paths (0 = time-seeded)")

	// Recording Configuration
	rootCmd.PersistentFlags().BoolVarP(&record, "record", "r", false,
		"Record the interpolated output to a WAV file")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "",
		"Output file name. Default is binterp-MM-DD-YYYY-HHMMSS.wav")

	// Transport Configuration
	rootCmd.PersistentFlags().BoolVar(&wsEnabled, "websocket", false,
		"Broadcast band energies over WebSocket")
	rootCmd.PersistentFlags().BoolVar(&udpEnabled, "udp", false,
		"Send binary spectrum packets over UDP")
	rootCmd.PersistentFlags().StringVar(&udpTarget, "udp-target", "",
		"Target address for UDP spectrum packets")

	// Debug Configuration
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return cfg, nil
}
