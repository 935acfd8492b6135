package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/bubbleocr/internal/batch"
	"github.com/MeKo-Tech/bubbleocr/internal/config"
	"github.com/MeKo-Tech/bubbleocr/internal/engine"
)

// imageCmd represents the image command.
var imageCmd = &cobra.Command{
	Use:   "image [files or directories...]",
	Short: "Recognize bubbles in image files",
	Long: `Run the configured engine over one or more images and print the
resulting bubbles.

A single image prints a bare JSON bubble array; several images print one
entry per file. Directories are expanded to the supported images they contain.

Examples:
  bubbleocr image page.png
  bubbleocr image chapter/ --recursive --format csv -o chapter.csv
  bubbleocr image page.webp --engine oneocr`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		return runImage(cmd, args, cfg)
	},
}

func init() {
	rootCmd.AddCommand(imageCmd)

	imageCmd.Flags().StringP("format", "f", config.FormatJSON, "output format (json, text, csv)")
	imageCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	imageCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	imageCmd.Flags().StringSlice("include", nil, "only process files matching these glob patterns")
	imageCmd.Flags().StringSlice("exclude", nil, "skip files matching these glob patterns")
	imageCmd.Flags().Bool("fail-fast", false, "stop at the first image that fails")
	imageCmd.Flags().Bool("stats", false, "print processing statistics to stderr")

	bindFlags(imageCmd, map[string]string{
		"output.format": "format",
		"output.file":   "output",
	})
}

func runImage(cmd *cobra.Command, args []string, cfg *config.Config) error {
	recursive, _ := cmd.Flags().GetBool("recursive")
	include, _ := cmd.Flags().GetStringSlice("include")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	failFast, _ := cmd.Flags().GetBool("fail-fast")
	stats, _ := cmd.Flags().GetBool("stats")

	format := cfg.Output.Format
	if format == "" {
		format = config.FormatJSON
	}

	eng, err := engine.New(cmd.Context(), cfg.Engine, cfg.EngineConfig(), engine.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(eng); err != nil {
			slog.Warn("Error closing engine", "error", err)
		}
	}()

	res, err := batch.Process(cmd.Context(), eng, args, &batch.Config{
		Recursive:       recursive,
		IncludePatterns: include,
		ExcludePatterns: exclude,
		FailFast:        failFast,
		Logger:          slog.Default(),
	})
	if err != nil {
		return err
	}

	if err := res.SaveResults(cmd.OutOrStdout(), format, cfg.Output.File); err != nil {
		return err
	}
	if stats {
		res.PrintStats(cmd.ErrOrStderr())
	}
	if failed := res.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(res.Items))
	}
	return nil
}
