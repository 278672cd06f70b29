package player

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vtrender/vtrender/videosource"
)

// defaultQueueCapacity is "≈2 s at 60 fps" per spec.md §3.
const defaultQueueCapacity = 120

// defaultTargetFPS is the typical target named in spec.md §3.
const defaultTargetFPS = 60

// PlaybackConfig is the immutable configuration passed to New. It is the
// structured record the menu/CLI collaborator is responsible for producing
// (spec.md §6 "Configuration contract"); this package merely defines its
// shape, default values, and YAML/CLI loading.
type PlaybackConfig struct {
	VideoPath string `yaml:"video_path"`
	AudioPath string `yaml:"audio_path,omitempty"`

	// Cols/Rows are the terminal cell extent; the pixel plane fed to the
	// rasterizer is (Cols, 2*Rows). Zero means "probe the terminal".
	Cols int `yaml:"cols"`
	Rows int `yaml:"rows"`

	FitMode string `yaml:"fit_mode"`

	TargetFPS     int `yaml:"target_fps"`
	QueueCapacity int `yaml:"queue_capacity"`
}

// Defaults returns a PlaybackConfig with every field set to the defaults
// named in spec.md §3, except VideoPath/Cols/Rows which the caller must
// still supply (or leave zero to trigger terminal probing for cols/rows).
func Defaults() PlaybackConfig {
	return PlaybackConfig{
		FitMode:       videosource.Letterbox.String(),
		TargetFPS:     defaultTargetFPS,
		QueueCapacity: defaultQueueCapacity,
	}
}

// Validate checks the configuration is internally consistent, returning
// ErrConfigInvalid wrapping the specific problem if not.
func (c PlaybackConfig) Validate() error {
	if c.VideoPath == "" {
		return fmt.Errorf("%w: video_path is required", ErrConfigInvalid)
	}

	if c.Cols < 0 || c.Rows < 0 {
		return fmt.Errorf("%w: cols/rows must not be negative", ErrConfigInvalid)
	}

	if c.TargetFPS <= 0 {
		return fmt.Errorf("%w: target_fps must be positive", ErrConfigInvalid)
	}

	if c.QueueCapacity <= 0 {
		return fmt.Errorf("%w: queue_capacity must be positive", ErrConfigInvalid)
	}

	if _, err := videosource.ParseFitMode(c.FitMode); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}

	return nil
}

// fitMode parses c.FitMode, which Validate already guarantees is well-formed.
func (c PlaybackConfig) fitMode() videosource.FitMode {
	m, _ := videosource.ParseFitMode(c.FitMode)

	return m
}

// LoadYAML reads a PlaybackConfig from a YAML file, starting from Defaults
// so any field the file omits keeps its default value.
func LoadYAML(path string) (PlaybackConfig, error) {
	cfg := Defaults()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: reading config file: %w", ErrConfigInvalid, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parsing config file: %w", ErrConfigInvalid, err)
	}

	return cfg, nil
}

// Flags holds CLI flag names for playback configuration, allowing callers
// to customize flag names while keeping sensible defaults via [NewConfig].
type Flags struct {
	VideoPath     string
	AudioPath     string
	Cols          string
	Rows          string
	FitMode       string
	TargetFPS     string
	QueueCapacity string
	ConfigFile    string
}

// NewConfig creates a new [Config] embedding these flag names.
func (f Flags) NewConfig() *Config {
	return &Config{
		Flags:          f,
		PlaybackConfig: Defaults(),
	}
}

// Config holds CLI flag values for playback configuration.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags]. Use [Config.Resolve] to obtain the final
// PlaybackConfig once flags have been parsed.
type Config struct {
	Flags          Flags
	PlaybackConfig PlaybackConfig
	ConfigFile     string
}

// NewConfig returns a new [Config] with default flag names and
// Defaults() values.
func NewConfig() *Config {
	f := Flags{
		VideoPath:     "video",
		AudioPath:     "audio",
		Cols:          "cols",
		Rows:          "rows",
		FitMode:       "fit-mode",
		TargetFPS:     "target-fps",
		QueueCapacity: "queue-capacity",
		ConfigFile:    "config",
	}

	return f.NewConfig()
}

// RegisterFlags adds playback flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.ConfigFile, c.Flags.ConfigFile, "", "load playback configuration from a YAML file")
	flags.StringVar(&c.PlaybackConfig.VideoPath, c.Flags.VideoPath, "", "path to the video file to play")
	flags.StringVar(&c.PlaybackConfig.AudioPath, c.Flags.AudioPath, "", "optional path to an audio file to play alongside")
	flags.IntVar(&c.PlaybackConfig.Cols, c.Flags.Cols, 0, "terminal columns to render (0 = probe terminal)")
	flags.IntVar(&c.PlaybackConfig.Rows, c.Flags.Rows, 0, "terminal rows to render (0 = probe terminal)")
	flags.StringVar(&c.PlaybackConfig.FitMode, c.Flags.FitMode, c.PlaybackConfig.FitMode, "fit mode: letterbox or fill")
	flags.IntVar(&c.PlaybackConfig.TargetFPS, c.Flags.TargetFPS, c.PlaybackConfig.TargetFPS, "target presentation frame rate")
	flags.IntVar(&c.PlaybackConfig.QueueCapacity, c.Flags.QueueCapacity, c.PlaybackConfig.QueueCapacity, "decoded frame queue capacity")
}

// RegisterCompletions registers shell completions for playback flags on cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	err := cmd.RegisterFlagCompletionFunc(c.Flags.FitMode,
		cobra.FixedCompletions([]string{"letterbox", "fill"}, cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering fit-mode completion: %w", err)
	}

	return nil
}

// Resolve returns the final PlaybackConfig: if ConfigFile is set, its
// contents take precedence as the base and are then overridden field-by-
// field by any flags the caller explicitly set on flagSet (defaults ←
// YAML ← CLI flags, per SPEC_FULL.md §2 Configuration).
func (c *Config) Resolve(flagSet *pflag.FlagSet) (PlaybackConfig, error) {
	cfg := c.PlaybackConfig

	if c.ConfigFile != "" {
		fileCfg, err := LoadYAML(c.ConfigFile)
		if err != nil {
			return PlaybackConfig{}, err
		}

		cfg = fileCfg
		overrideFromFlags(&cfg, c, flagSet)
	}

	return cfg, nil
}

// overrideFromFlags applies any CLI flag the caller explicitly set on top
// of a YAML-loaded base, implementing the defaults ← YAML ← CLI precedence.
func overrideFromFlags(cfg *PlaybackConfig, c *Config, flagSet *pflag.FlagSet) {
	if flagSet == nil {
		return
	}

	if flagSet.Changed(c.Flags.VideoPath) {
		cfg.VideoPath = c.PlaybackConfig.VideoPath
	}

	if flagSet.Changed(c.Flags.AudioPath) {
		cfg.AudioPath = c.PlaybackConfig.AudioPath
	}

	if flagSet.Changed(c.Flags.Cols) {
		cfg.Cols = c.PlaybackConfig.Cols
	}

	if flagSet.Changed(c.Flags.Rows) {
		cfg.Rows = c.PlaybackConfig.Rows
	}

	if flagSet.Changed(c.Flags.FitMode) {
		cfg.FitMode = c.PlaybackConfig.FitMode
	}

	if flagSet.Changed(c.Flags.TargetFPS) {
		cfg.TargetFPS = c.PlaybackConfig.TargetFPS
	}

	if flagSet.Changed(c.Flags.QueueCapacity) {
		cfg.QueueCapacity = c.PlaybackConfig.QueueCapacity
	}
}
