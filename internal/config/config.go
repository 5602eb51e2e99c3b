package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	MaxBodyBytes    int64           `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES" validate:"gt=0"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format      string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PipelineConfig contains growth-curve fitting configuration
type PipelineConfig struct {
	Mode             string        `yaml:"mode" envconfig:"MODE" validate:"oneof=fixed search"`
	FixedStrength    float64       `yaml:"fixed_strength" envconfig:"FIXED_STRENGTH" validate:"gt=0"`
	CleaningStrategy string        `yaml:"cleaning_strategy" envconfig:"CLEANING_STRATEGY" validate:"oneof=percentile double_zscore"`
	CentileLevels    []float64     `yaml:"centile_levels" envconfig:"CENTILE_LEVELS" validate:"min=1,dive,gt=0,lt=100"`
	CentileGrid      int           `yaml:"centile_grid" envconfig:"CENTILE_GRID" validate:"gte=0"`
	Workers          int           `yaml:"workers" envconfig:"WORKERS" validate:"min=1"`
	FitTimeout       time.Duration `yaml:"fit_timeout" envconfig:"FIT_TIMEOUT" validate:"gt=0"`
	MaxCycles        int           `yaml:"max_cycles" envconfig:"MAX_CYCLES" validate:"min=1"`
	Tolerance        float64       `yaml:"tolerance" envconfig:"TOLERANCE" validate:"gt=0"`
	GatingTissue     string        `yaml:"gating_tissue" envconfig:"GATING_TISSUE" validate:"required"`
	CovariateColumn  string        `yaml:"covariate_column" envconfig:"COVARIATE_COLUMN" validate:"required"`
	TissueColumn     string        `yaml:"tissue_column" envconfig:"TISSUE_COLUMN" validate:"required"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	EnableTracing  bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	EnableMetrics  bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" validate:"oneof=prometheus none"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
}

// Load builds the configuration from defaults, an optional YAML file and
// GROWTH_* environment variables, in that order of precedence (last wins).
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile == "" {
		configFile = getConfigFilePath()
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML file values onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct constraints
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// getConfigFilePath returns the first config file found in the usual places
func getConfigFilePath() string {
	locations := []string{
		"growthcurves.yaml",
		"configs/growthcurves.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    8 << 20,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/growthcurves.log",
		},
		Pipeline: PipelineConfig{
			Mode:             ModeFixed,
			FixedStrength:    DefaultFixedStrength,
			CleaningStrategy: CleaningPercentile,
			CentileLevels:    append([]float64(nil), DefaultCentileLevels...),
			Workers:          runtime.NumCPU(),
			FitTimeout:       DefaultFitTimeout,
			MaxCycles:        DefaultMaxCycles,
			Tolerance:        DefaultTolerance,
			GatingTissue:     DefaultGatingTissue,
			CovariateColumn:  DefaultCovariateColumn,
			TissueColumn:     DefaultTissueColumn,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			Environment:    "development",
			EnableTracing:  false,
			EnableMetrics:  true,
			TraceExporter:  "stdout",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
		Paths: PathsConfig{
			OutputDir: DefaultOutputDir,
		},
	}
}
