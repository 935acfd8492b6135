package config

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/bubbleocr/internal/engine"
	"github.com/MeKo-Tech/bubbleocr/internal/engine/oneocr"
	"github.com/MeKo-Tech/bubbleocr/internal/onnx"
)

// Output formats accepted by the image command.
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatCSV  = "csv"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	ec := engine.DefaultConfig()
	return Config{
		LogLevel: "info",
		Engine:   "meikimanga",
		OneOCR: OneOCRConfig{
			ChunkHeight: ec.OneOCR.ChunkHeight,
			Overlap:     ec.OneOCR.Overlap,
		},
		Lens: LensConfig{Language: "ja"},
		Meiki: MeikiConfig{
			ConfidenceThreshold: ec.Meiki.ConfidenceThreshold,
			InputSize:           ec.Meiki.InputSize,
			MinCropSize:         ec.Meiki.MinCropSize,
		},
		GCV: GCVConfig{
			ChunkHeight:   ec.GCV.ChunkHeight,
			Overlap:       ec.GCV.Overlap,
			LanguageHints: []string{"ja"},
		},
		Sidecar: SidecarConfig{
			TimeoutSec: int(ec.Sidecar.Timeout / time.Second),
			MaxRetries: ec.Sidecar.MaxRetries,
		},
		Output: OutputConfig{Format: FormatJSON},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      60,
			ShutdownTimeout: 10,
			CacheSize:       256,
		},
		GPU: GPUConfig{MemoryLimit: "auto"},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if !slices.Contains(engine.Names(), engine.Normalize(c.Engine)) {
		return fmt.Errorf("invalid engine: %q (must be one of: %s)", c.Engine, strings.Join(engine.Names(), ", "))
	}

	validFormats := []string{FormatJSON, FormatText, FormatCSV}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if err := validateThreshold(c.Meiki.ConfidenceThreshold, "meiki.confidence_threshold"); err != nil {
		return err
	}
	if c.Meiki.InputSize <= 0 {
		return fmt.Errorf("invalid meiki input size: %d (must be positive)", c.Meiki.InputSize)
	}
	if c.Meiki.MinCropSize < 0 {
		return fmt.Errorf("invalid meiki min crop size: %d (must not be negative)", c.Meiki.MinCropSize)
	}

	if err := c.oneOCRChunks().Validate(); err != nil {
		return fmt.Errorf("invalid oneocr chunking: %w", err)
	}
	if err := c.gcvChunks().Validate(); err != nil {
		return fmt.Errorf("invalid gcv chunking: %w", err)
	}

	if c.Sidecar.TimeoutSec <= 0 {
		return fmt.Errorf("invalid sidecar timeout: %d (must be positive)", c.Sidecar.TimeoutSec)
	}
	if c.Sidecar.MaxRetries < 0 {
		return fmt.Errorf("invalid sidecar max retries: %d (must not be negative)", c.Sidecar.MaxRetries)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.CacheSize < 0 || c.Server.RequestsPerMinute < 0 || c.Server.MaxDataPerDayMB < 0 {
		return errors.New("invalid server limits: cache size, requests per minute and daily data must not be negative")
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}

	if _, err := parseMemoryLimit(c.GPU.MemoryLimit); err != nil {
		return fmt.Errorf("invalid GPU memory limit: %w", err)
	}
	return nil
}

func (c *Config) oneOCRChunks() oneocr.Config {
	return oneocr.Config{ChunkHeight: c.OneOCR.ChunkHeight, Overlap: c.OneOCR.Overlap}
}

func (c *Config) gcvChunks() oneocr.Config {
	return oneocr.Config{ChunkHeight: c.GCV.ChunkHeight, Overlap: c.GCV.Overlap}
}

// EngineConfig converts the config to the engine constructor settings.
func (c *Config) EngineConfig() engine.Config {
	ec := engine.DefaultConfig()
	ec.ModelsDir = c.ModelsDir
	ec.GPU = c.toGPUConfig()
	ec.Lens = engine.LensConfig{
		Endpoint:  c.Lens.Endpoint,
		Language:  c.Lens.Language,
		RawLayout: c.Lens.RawLayout,
	}
	ec.OneOCR = engine.OneOCRConfig{Config: c.oneOCRChunks(), Endpoint: c.OneOCR.Endpoint}
	ec.GCV = engine.GCVConfig{Config: c.gcvChunks(), LanguageHints: c.GCV.LanguageHints}
	ec.Meiki = engine.MeikiConfig{
		ModelPath:           c.Meiki.ModelPath,
		ConfidenceThreshold: c.Meiki.ConfidenceThreshold,
		InputSize:           c.Meiki.InputSize,
		MinCropSize:         c.Meiki.MinCropSize,
		RecognizerModelRef:  c.Meiki.RecognizerModelRef,
		RecognizerDictPath:  c.Meiki.RecognizerDictPath,
		ForceCPU:            c.Meiki.ForceCPU,
		NumThreads:          c.Meiki.NumThreads,
	}
	ec.Sidecar = engine.SidecarConfig{
		Timeout:    time.Duration(c.Sidecar.TimeoutSec) * time.Second,
		MaxRetries: c.Sidecar.MaxRetries,
	}
	return ec
}

// toGPUConfig converts to onnx.GPUConfig.
func (c *Config) toGPUConfig() onnx.GPUConfig {
	cfg := onnx.DefaultGPUConfig()
	cfg.UseGPU = c.GPU.Enabled
	cfg.DeviceID = c.GPU.Device
	if limit, err := parseMemoryLimit(c.GPU.MemoryLimit); err == nil {
		cfg.GPUMemLimit = limit
	}
	return cfg
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}

// parseMemoryLimit parses limits like "1GB" or "512MB" into bytes. "" and
// "auto" mean unlimited.
func parseMemoryLimit(limit string) (uint64, error) {
	if limit == "" || limit == "auto" {
		return 0, nil
	}
	upper := strings.ToUpper(strings.TrimSpace(limit))
	units := []struct {
		suffix string
		scale  float64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	}
	for _, u := range units {
		if !strings.HasSuffix(upper, u.suffix) {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSuffix(upper, u.suffix), 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid number in memory limit: %s", limit)
		}
		return uint64(n * u.scale), nil
	}
	return 0, fmt.Errorf("memory limit must end with one of: B, KB, MB, GB")
}
