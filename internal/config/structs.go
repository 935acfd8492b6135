//nolint:lll
package config

// Config represents the complete configuration for bubbleocr.
// It covers every command (image, serve, engines) and is loaded from
// configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Engine selection key
	Engine string `mapstructure:"engine" yaml:"engine" json:"engine"`

	// Engine sections
	OneOCR OneOCRConfig `mapstructure:"oneocr" yaml:"oneocr" json:"oneocr"`
	Lens   LensConfig   `mapstructure:"lens" yaml:"lens" json:"lens"`
	Meiki  MeikiConfig  `mapstructure:"meiki" yaml:"meiki" json:"meiki"`
	GCV    GCVConfig    `mapstructure:"gcv" yaml:"gcv" json:"gcv"`

	// Sidecar HTTP client settings
	Sidecar SidecarConfig `mapstructure:"sidecar" yaml:"sidecar" json:"sidecar"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// GPU configuration
	GPU GPUConfig `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
}

// OneOCRConfig contains chunk-and-stitch settings.
type OneOCRConfig struct {
	ChunkHeight int    `mapstructure:"chunk_height" yaml:"chunk_height" json:"chunk_height"`
	Overlap     int    `mapstructure:"overlap" yaml:"overlap" json:"overlap"`
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
}

// LensConfig contains geometry engine settings.
type LensConfig struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	Language  string `mapstructure:"language" yaml:"language" json:"language"`
	RawLayout bool   `mapstructure:"raw_layout" yaml:"raw_layout" json:"raw_layout"`
}

// MeikiConfig contains detect-then-recognize settings.
type MeikiConfig struct {
	ModelPath           string  `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold" json:"confidence_threshold"`
	InputSize           int     `mapstructure:"input_size" yaml:"input_size" json:"input_size"`
	MinCropSize         int     `mapstructure:"min_crop_size" yaml:"min_crop_size" json:"min_crop_size"`
	RecognizerModelRef  string  `mapstructure:"recognizer_model_ref" yaml:"recognizer_model_ref" json:"recognizer_model_ref"`
	RecognizerDictPath  string  `mapstructure:"recognizer_dict_path" yaml:"recognizer_dict_path" json:"recognizer_dict_path"`
	ForceCPU            bool    `mapstructure:"force_cpu" yaml:"force_cpu" json:"force_cpu"`
	NumThreads          int     `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
}

// GCVConfig contains Cloud Vision settings.
type GCVConfig struct {
	ChunkHeight   int      `mapstructure:"chunk_height" yaml:"chunk_height" json:"chunk_height"`
	Overlap       int      `mapstructure:"overlap" yaml:"overlap" json:"overlap"`
	LanguageHints []string `mapstructure:"language_hints" yaml:"language_hints" json:"language_hints"`
}

// SidecarConfig contains HTTP sidecar client settings.
type SidecarConfig struct {
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// Result cache entries keyed by image digest; 0 disables the cache.
	CacheSize int `mapstructure:"cache_size" yaml:"cache_size" json:"cache_size"`

	// Per-client limits; 0 disables a limit.
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	MaxDataPerDayMB   int `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// GPUConfig contains GPU acceleration settings.
type GPUConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Device      int    `mapstructure:"device" yaml:"device" json:"device"`
	MemoryLimit string `mapstructure:"memory_limit" yaml:"memory_limit" json:"memory_limit"`
}
