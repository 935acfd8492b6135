package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/bubbleocr/internal/onnx"
)

// testCmd checks that the ONNX Runtime library can be loaded.
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test ONNX Runtime setup and dependencies",
	Long: `Verify that the ONNX Runtime shared library needed by the meikimanga
engine can be found and initialized.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, "Testing ONNX Runtime setup...")
		for _, c := range onnx.LibraryCandidates(cfg.GPU.Enabled) {
			_, _ = fmt.Fprintln(out, "  candidate:", c)
		}
		if err := onnx.InitEnvironment(cfg.GPU.Enabled); err != nil {
			return fmt.Errorf("ONNX Runtime test failed: %w", err)
		}
		_, _ = fmt.Fprintln(out, "ONNX Runtime is ready for use.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(testCmd)
}
