package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "bubbleocr"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "BUBBLEOCR"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoaderWithViper creates a loader backed by v. Flag bindings must be
// made on v before loading.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load loads configuration from files, environment variables, and sets defaults.
func (l *Loader) Load() (*Config, error) {
	return l.load("", true)
}

// LoadWithoutValidation loads configuration without validating it.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	return l.load("", false)
}

// LoadWithFile loads configuration from a specific file.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	return l.load(configFile, true)
}

// LoadWithFileWithoutValidation loads configuration from a specific file without validating it.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	return l.load(configFile, false)
}

func (l *Loader) load(configFile string, validate bool) (*Config, error) {
	if configFile != "" {
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		// A missing file in the search paths is fine; an explicit one is not.
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if validate {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return &config, nil
}

// addConfigPaths adds standard configuration file search paths.
func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
		l.v.AddConfigPath(filepath.Join(home, ".config", "bubbleocr"))
	}

	l.v.AddConfigPath("/etc/bubbleocr")

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		l.v.AddConfigPath(filepath.Join(xdg, "bubbleocr"))
	}
}

// setupEnvironmentVariables configures environment variable handling.
// BUBBLEOCR_OCR_ENGINE is also honoured for the engine key.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	_ = l.v.BindEnv("engine", EnvPrefix+"_ENGINE", EnvPrefix+"_OCR_ENGINE")
}

// setDefaults registers every key so environment variables can override it.
func (l *Loader) setDefaults() {
	for key, value := range defaultValues() {
		l.v.SetDefault(key, value)
	}
}

func defaultValues() map[string]any {
	d := DefaultConfig()
	return map[string]any{
		"models_dir": d.ModelsDir,
		"log_level":  d.LogLevel,
		"verbose":    d.Verbose,
		"engine":     d.Engine,

		"oneocr.chunk_height": d.OneOCR.ChunkHeight,
		"oneocr.overlap":      d.OneOCR.Overlap,
		"oneocr.endpoint":     d.OneOCR.Endpoint,

		"lens.endpoint":   d.Lens.Endpoint,
		"lens.language":   d.Lens.Language,
		"lens.raw_layout": d.Lens.RawLayout,

		"meiki.model_path":           d.Meiki.ModelPath,
		"meiki.confidence_threshold": d.Meiki.ConfidenceThreshold,
		"meiki.input_size":           d.Meiki.InputSize,
		"meiki.min_crop_size":        d.Meiki.MinCropSize,
		"meiki.recognizer_model_ref": d.Meiki.RecognizerModelRef,
		"meiki.recognizer_dict_path": d.Meiki.RecognizerDictPath,
		"meiki.force_cpu":            d.Meiki.ForceCPU,
		"meiki.num_threads":          d.Meiki.NumThreads,

		"gcv.chunk_height":   d.GCV.ChunkHeight,
		"gcv.overlap":        d.GCV.Overlap,
		"gcv.language_hints": d.GCV.LanguageHints,

		"sidecar.timeout_sec": d.Sidecar.TimeoutSec,
		"sidecar.max_retries": d.Sidecar.MaxRetries,

		"output.format": d.Output.Format,
		"output.file":   d.Output.File,

		"server.host":                d.Server.Host,
		"server.port":                d.Server.Port,
		"server.cors_origin":         d.Server.CORSOrigin,
		"server.max_upload_mb":       d.Server.MaxUploadMB,
		"server.timeout_sec":         d.Server.TimeoutSec,
		"server.shutdown_timeout":    d.Server.ShutdownTimeout,
		"server.cache_size":          d.Server.CacheSize,
		"server.requests_per_minute": d.Server.RequestsPerMinute,
		"server.max_data_per_day_mb": d.Server.MaxDataPerDayMB,

		"gpu.enabled":      d.GPU.Enabled,
		"gpu.device":       d.GPU.Device,
		"gpu.memory_limit": d.GPU.MemoryLimit,
	}
}

// Get returns the value for a configuration key.
func (l *Loader) Get(key string) any {
	return l.v.Get(key)
}

// GetString returns the string value for a configuration key.
func (l *Loader) GetString(key string) string {
	return l.v.GetString(key)
}

// Set sets a configuration value.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file that was used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// GetResolvedConfig returns the effective configuration from all sources.
func (l *Loader) GetResolvedConfig() (*Config, error) {
	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling resolved config: %w", err)
	}
	return &config, nil
}

// WriteConfigToFile writes cfg as YAML to filename, creating parent directories.
func WriteConfigToFile(cfg *Config, filename string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// GenerateDefaultConfigFile writes the default configuration to filename.
func GenerateDefaultConfigFile(filename string) error {
	cfg := DefaultConfig()
	return WriteConfigToFile(&cfg, filename)
}

// GetConfigSearchPaths returns the list of paths where config files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home, filepath.Join(home, ".config", "bubbleocr"))
	}
	paths = append(paths, "/etc/bubbleocr")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "bubbleocr"))
	}
	return paths
}
