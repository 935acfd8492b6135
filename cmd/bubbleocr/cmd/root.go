package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/bubbleocr/internal/config"
	"github.com/MeKo-Tech/bubbleocr/internal/engine"
	"github.com/MeKo-Tech/bubbleocr/internal/models"
	"github.com/MeKo-Tech/bubbleocr/internal/version"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Configuration file path.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bubbleocr",
	Short: "Speech-bubble OCR for manga and comic pages",
	Long: `bubbleocr recognizes text in manga and comic pages and reports every
text block as a bubble with a normalized bounding box, orientation and
confidence.

Engines:
  meikimanga  local ONNX detection and recognition
  lens        geometry from a Lens sidecar
  oneocr      chunk-and-stitch over a OneOCR sidecar
  gcv         chunk-and-stitch over Google Cloud Vision

Examples:
  bubbleocr image page.png
  bubbleocr image chapter/ --engine lens --format text
  bubbleocr serve --port 3000`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg))
		return nil
	},
}

// GetRootCommand returns the root command for main and tests.
// Neither calls os.Exit from inside the command tree.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/bubbleocr, /etc/bubbleocr)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("models-dir", "",
		"directory containing ONNX models (can also be set via "+models.EnvModelsDir+")")
	rootCmd.PersistentFlags().StringP("engine", "e", "meikimanga", "OCR engine: "+fmt.Sprint(engine.Names()))

	bindFlags(rootCmd, map[string]string{
		"verbose":    "verbose",
		"log_level":  "log-level",
		"models_dir": "models-dir",
		"engine":     "engine",
	})
}

// flagBinding ties a viper key to a flag of a specific command.
type flagBinding struct {
	cmd  *cobra.Command
	name string
}

// flagBindings is filled by init functions and applied on every load.
var flagBindings = map[string]flagBinding{}

// bindFlags registers persistent or local flags of cmd as overrides for
// viper keys.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		if cmd.PersistentFlags().Lookup(name) == nil && cmd.Flags().Lookup(name) == nil {
			panic("unknown flag " + name)
		}
		flagBindings[key] = flagBinding{cmd: cmd, name: name}
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, b := range flagBindings {
		flag := b.cmd.PersistentFlags().Lookup(b.name)
		if flag == nil {
			flag = b.cmd.Flags().Lookup(b.name)
		}
		_ = v.BindPFlag(key, flag)
	}
	return v
}

// loadConfig resolves the configuration from file, environment and flags.
func loadConfig(validate bool) (*config.Config, error) {
	configLoader = config.NewLoaderWithViper(newViper())

	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = configLoader.LoadWithFileWithoutValidation(cfgFile)
	} else {
		cfg, err = configLoader.LoadWithoutValidation()
	}
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
