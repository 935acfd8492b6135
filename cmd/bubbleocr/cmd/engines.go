package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/bubbleocr/internal/engine"
	"github.com/MeKo-Tech/bubbleocr/internal/models"
)

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "List the registered OCR engines",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		active := engine.Normalize(cfg.Engine)
		out := cmd.OutOrStdout()
		for _, name := range engine.Names() {
			marker := " "
			if name == active {
				marker = "*"
			}
			_, _ = fmt.Fprintf(out, "%s %s\n", marker, name)
		}
		return nil
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the local models used by the meikimanga engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		dir := models.GetModelsDir(cfg.ModelsDir)
		_, _ = fmt.Fprintf(out, "Models directory: %s\n", dir)
		for _, m := range models.ListAvailableModels() {
			path := models.ResolveModelPath(dir, m.Type, m.Filename)
			status := "ok"
			if err := models.ValidateModelExists(path); err != nil {
				status = "missing"
			}
			_, _ = fmt.Fprintf(out, "  %-18s %-8s %s (%s)\n", m.Name, status, path, m.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enginesCmd)
	rootCmd.AddCommand(modelsCmd)
}
