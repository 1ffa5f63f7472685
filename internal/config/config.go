// Package config loads framegrab's settings from defaults, an optional
// YAML file and FRAMEGRAB_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "FRAMEGRAB_"

// Config is the full runtime configuration.
type Config struct {
	LogLevel       string `yaml:"log_level"        env:"LOG_LEVEL"`
	LogFormat      string `yaml:"log_format"       env:"LOG_FORMAT"`
	FFmpegLogLevel string `yaml:"ffmpeg_log_level" env:"FFMPEG_LOG_LEVEL"`

	Extract ExtractConfig `yaml:"extract" envPrefix:"EXTRACT_"`
	HTTP    HTTPConfig    `yaml:"http"    envPrefix:"HTTP_"`
	S3      S3Config      `yaml:"s3"      envPrefix:"S3_"`

	MetricsEnabled  bool   `yaml:"metrics_enabled"  env:"METRICS_ENABLED"`
	TracingExporter string `yaml:"tracing_exporter" env:"TRACING_EXPORTER"`
	OTLPEndpoint    string `yaml:"otlp_endpoint"    env:"OTLP_ENDPOINT"`
}

// ExtractConfig holds defaults applied to every extraction.
type ExtractConfig struct {
	PixelFormat  string `yaml:"pixel_format"  env:"PIXEL_FORMAT"`
	Scaling      string `yaml:"scaling"       env:"SCALING"`
	NegativeTime string `yaml:"negative_time" env:"NEGATIVE_TIME"`
	OpenStrategy string `yaml:"open_strategy" env:"OPEN_STRATEGY"`
	TempDir      string `yaml:"temp_dir"      env:"TEMP_DIR"`
}

// HTTPConfig configures the extraction server.
type HTTPConfig struct {
	Addr           string        `yaml:"addr"            env:"ADDR"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"  env:"MAX_BODY_BYTES"`
	// MaxConcurrent bounds extractions in flight; 0 means unbounded.
	MaxConcurrent  int           `yaml:"max_concurrent"  env:"MAX_CONCURRENT"`
}

// S3Config locates an S3-compatible store for s3:// sources.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"   env:"ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY"`
	UseSSL    bool   `yaml:"use_ssl"    env:"USE_SSL"`
	Region    string `yaml:"region"     env:"REGION"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		LogLevel:       "info",
		LogFormat:      "auto",
		FFmpegLogLevel: "error",
		Extract: ExtractConfig{
			PixelFormat:  "rgb24",
			Scaling:      "bilinear",
			NegativeTime: "clamp",
			OpenStrategy: "avio",
		},
		HTTP: HTTPConfig{
			Addr:           ":8080",
			RequestTimeout: 30 * time.Second,
			MaxBodyBytes:   512 << 20,
		},
		MetricsEnabled:  true,
		TracingExporter: "none",
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return nil
		}
	}
	return fmt.Errorf("%s: %q is not one of %s", field, value, strings.Join(allowed, ", "))
}

// Validate checks enumerated fields and limits.
func (c *Config) Validate() error {
	errs := []error{
		oneOf("log_level", c.LogLevel, "debug", "info", "warn", "error"),
		oneOf("log_format", c.LogFormat, "auto", "console", "json"),
		oneOf("ffmpeg_log_level", c.FFmpegLogLevel, "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug"),
		oneOf("extract.pixel_format", c.Extract.PixelFormat, "rgb24", "rgba", "bgr24", "gray8"),
		oneOf("extract.scaling", c.Extract.Scaling, "bilinear", "bicubic", "area", "fast"),
		oneOf("extract.negative_time", c.Extract.NegativeTime, "clamp", "reject"),
		oneOf("extract.open_strategy", c.Extract.OpenStrategy, "avio", "tempfile"),
		oneOf("tracing_exporter", c.TracingExporter, "none", "stdout", "otlp"),
	}
	if c.HTTP.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http.request_timeout must be positive, got %s", c.HTTP.RequestTimeout))
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("http.max_body_bytes must be positive, got %d", c.HTTP.MaxBodyBytes))
	}
	if c.HTTP.MaxConcurrent < 0 {
		errs = append(errs, fmt.Errorf("http.max_concurrent must not be negative, got %d", c.HTTP.MaxConcurrent))
	}
	if strings.EqualFold(c.TracingExporter, "otlp") && c.OTLPEndpoint == "" {
		errs = append(errs, errors.New("otlp_endpoint is required when tracing_exporter is otlp"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
