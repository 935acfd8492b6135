package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/MeKo-Tech/bubbleocr/internal/detector"
	"github.com/MeKo-Tech/bubbleocr/internal/engine/meiki"
	"github.com/MeKo-Tech/bubbleocr/internal/engine/oneocr"
	"github.com/MeKo-Tech/bubbleocr/internal/models"
	"github.com/MeKo-Tech/bubbleocr/internal/onnx"
	"github.com/MeKo-Tech/bubbleocr/internal/recognizer"
	"github.com/MeKo-Tech/bubbleocr/internal/sidecar"
)

// Config carries constructor-time settings for every engine. Only the
// section of the selected engine is read.
type Config struct {
	ModelsDir string
	GPU       onnx.GPUConfig
	Lens      LensConfig
	OneOCR    OneOCRConfig
	Meiki     MeikiConfig
	GCV       GCVConfig
	Sidecar   SidecarConfig
}

// LensConfig configures the geometry engine's sidecar.
type LensConfig struct {
	Endpoint  string
	Language  string
	RawLayout bool
}

// OneOCRConfig configures the chunk-and-stitch engine.
type OneOCRConfig struct {
	oneocr.Config
	Endpoint string
}

// MeikiConfig configures the detect-then-recognize engine.
type MeikiConfig struct {
	ModelPath           string  // detector weights location
	ConfidenceThreshold float64 // detection score cutoff in [0,1]
	InputSize           int
	MinCropSize         int
	RecognizerModelRef  string // recognizer weights identifier
	RecognizerDictPath  string
	ForceCPU            bool // disables hardware acceleration
	NumThreads          int
}

// GCVConfig configures the Cloud Vision engine.
type GCVConfig struct {
	oneocr.Config
	LanguageHints []string
}

// SidecarConfig configures HTTP sidecar clients.
type SidecarConfig struct {
	Timeout    time.Duration
	MaxRetries int
}

// DefaultConfig returns defaults for every engine.
func DefaultConfig() Config {
	det := detector.DefaultConfig()
	return Config{
		GPU:    onnx.DefaultGPUConfig(),
		OneOCR: OneOCRConfig{Config: oneocr.DefaultConfig()},
		GCV:    GCVConfig{Config: oneocr.DefaultConfig()},
		Meiki: MeikiConfig{
			ConfidenceThreshold: det.ConfidenceThreshold,
			InputSize:           det.InputSize,
			MinCropSize:         meiki.DefaultMinCropSize,
		},
		Sidecar: SidecarConfig{Timeout: sidecar.DefaultTimeout, MaxRetries: sidecar.DefaultMaxRetries},
	}
}

func (c MeikiConfig) gpu(base onnx.GPUConfig) onnx.GPUConfig {
	if c.ForceCPU {
		base.UseGPU = false
	}
	return base
}

// DetectorConfig derives the box detector configuration.
func (c Config) DetectorConfig() detector.Config {
	cfg := detector.DefaultConfig()
	if c.ModelsDir != "" {
		cfg.UpdateModelPath(c.ModelsDir)
	}
	if c.Meiki.ModelPath != "" {
		cfg.ModelPath = models.ResolveRef(c.ModelsDir, models.TypeDetection, c.Meiki.ModelPath)
	}
	cfg.ConfidenceThreshold = c.Meiki.ConfidenceThreshold
	if c.Meiki.InputSize > 0 {
		cfg.InputSize = c.Meiki.InputSize
	}
	cfg.NumThreads = c.Meiki.NumThreads
	cfg.GPU = c.Meiki.gpu(c.GPU)
	return cfg
}

// RecognizerConfig derives the crop recognizer configuration.
func (c Config) RecognizerConfig() recognizer.Config {
	cfg := recognizer.DefaultConfig()
	if c.ModelsDir != "" {
		cfg.UpdateModelPath(c.ModelsDir)
	}
	if c.Meiki.RecognizerModelRef != "" {
		cfg.ModelPath = models.ResolveRef(c.ModelsDir, models.TypeRecognition, c.Meiki.RecognizerModelRef)
	}
	if c.Meiki.RecognizerDictPath != "" {
		cfg.DictPath = models.ResolveRef(c.ModelsDir, models.TypeDictionaries, c.Meiki.RecognizerDictPath)
	}
	cfg.NumThreads = c.Meiki.NumThreads
	cfg.GPU = c.Meiki.gpu(c.GPU)
	return cfg
}

// Validate checks the settings shared by all engines.
func (c Config) Validate() error {
	var errs []error
	if err := c.OneOCR.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("oneocr: %w", err))
	}
	if err := c.GCV.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("gcv: %w", err))
	}
	if t := c.Meiki.ConfidenceThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("meiki: confidence threshold must be in [0,1], got %v", t))
	}
	if c.Meiki.MinCropSize < 0 {
		errs = append(errs, fmt.Errorf("meiki: min crop size must not be negative, got %d", c.Meiki.MinCropSize))
	}
	if c.Sidecar.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("sidecar: max retries must not be negative, got %d", c.Sidecar.MaxRetries))
	}
	return errors.Join(errs...)
}
