// Package config provides configuration loading with layered overrides.
// Load order: defaults -> YAML file -> environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	configloader "github.com/GabrielNunesIT/go-libs/config-loader"

	"github.com/GabrielNunesIT/cls-shipper/internal/sign"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "CLS_SHIPPER_"

// Config is the root configuration structure for cls-shipper.
type Config struct {
	LogLevel  string          `koanf:"loglevel" yaml:"log_level" json:"log_level"`
	LogFile   LogFileConfig   `koanf:"logfile"`
	CLS       CLSConfig       `koanf:"cls"`
	Input     InputConfig     `koanf:"input"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Processor ProcessorConfig `koanf:"processor"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// LogFileConfig sends the process's own logs to a rotating file instead of
// stderr when Path is set.
type LogFileConfig struct {
	Path       string `koanf:"path"`
	MaxSizeMB  int    `koanf:"maxsizemb" yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `koanf:"maxbackups" yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `koanf:"maxagedays" yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// CLSConfig is the log service connection and the destination of shipped
// records. It is read once at startup; a reload builds a new emitter.
type CLSConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Endpoint   string        `koanf:"endpoint"`
	Scheme     string        `koanf:"scheme"`
	SecretID   string        `koanf:"secretid" yaml:"secret_id" json:"secret_id"`
	SecretKey  string        `koanf:"secretkey" yaml:"secret_key" json:"-"`
	Timeout    time.Duration `koanf:"timeout"`
	LogSetName string        `koanf:"logsetname" yaml:"logset_name" json:"logset_name"`
	TopicName  string        `koanf:"topicname" yaml:"topic_name" json:"topic_name"`
	// Period is the retention in days given to a log set created on demand.
	Period int `koanf:"period"`
	// MinLevel is the lowest severity shipped: debug, info, warn or error,
	// optionally with an offset such as "info+2".
	MinLevel string `koanf:"minlevel" yaml:"min_level" json:"min_level"`
	// Category names the emitter used by the ship command; it prefixes each
	// batch's filename.
	Category string `koanf:"category"`
}

// Credentials returns the signing credentials.
func (c CLSConfig) Credentials() sign.Credentials {
	return sign.Credentials{SecretID: c.SecretID, SecretKey: c.SecretKey}
}

// Level parses MinLevel.
func (c CLSConfig) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.MinLevel)); err != nil {
		return 0, fmt.Errorf("cls.minlevel: %w", err)
	}
	return l, nil
}

// InputConfig selects what the ship command reads. With no files it reads
// standard input.
type InputConfig struct {
	Files   []string `koanf:"files"`   // Glob patterns of files to tail
	Exclude []string `koanf:"exclude"` // Base-name patterns to skip
	// FromStart ships the existing content of matched files before tailing.
	FromStart bool `koanf:"fromstart" yaml:"from_start" json:"from_start"`
}

// PipelineConfig controls the pipeline behavior.
type PipelineConfig struct {
	BufferSize      int           `koanf:"buffersize" yaml:"buffer_size" json:"buffer_size"`
	ShutdownTimeout time.Duration `koanf:"shutdowntimeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// ProcessorConfig holds the processor chain configuration.
type ProcessorConfig struct {
	Parser   ParserConfig   `koanf:"parser"`
	Enricher EnricherConfig `koanf:"enricher"`
}

// ParserConfig configures the parsing processor.
type ParserConfig struct {
	Enabled        bool     `koanf:"enabled"`
	JSONAutoDetect bool     `koanf:"jsonautodetect" yaml:"json_auto_detect" json:"json_auto_detect"`
	DetectLevel    bool     `koanf:"detectlevel" yaml:"detect_level" json:"detect_level"`
	Patterns       []string `koanf:"patterns"` // Regex patterns with named groups
}

// EnricherConfig configures the enrichment processor.
type EnricherConfig struct {
	Enabled      bool              `koanf:"enabled"`
	AddHostname  bool              `koanf:"addhostname" yaml:"add_hostname" json:"add_hostname"`
	AddTimestamp bool              `koanf:"addtimestamp" yaml:"add_timestamp" json:"add_timestamp"`
	StaticLabels map[string]string `koanf:"staticlabels" yaml:"static_labels" json:"static_labels"`
}

// MetricsConfig exposes Prometheus metrics over HTTP when Address is set.
type MetricsConfig struct {
	Address string `koanf:"address"`
	Path    string `koanf:"path"`
}

// defaults returns the default configuration values.
func defaults() Config {
	return Config{
		LogLevel: "info",
		LogFile: LogFileConfig{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		CLS: CLSConfig{
			Enabled:    true,
			Scheme:     "http",
			Timeout:    10 * time.Second,
			LogSetName: "cls-shipper",
			TopicName:  "default",
			Period:     30,
			MinLevel:   "info",
			Category:   "cls-shipper",
		},
		Pipeline: PipelineConfig{
			BufferSize:      1000,
			ShutdownTimeout: 30 * time.Second,
		},
		Processor: ProcessorConfig{
			Parser: ParserConfig{
				Enabled:        true,
				JSONAutoDetect: true,
				DetectLevel:    true,
			},
			Enricher: EnricherConfig{
				Enabled:     true,
				AddHostname: true,
			},
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}

// Validate reports every setting that would make the shipper fail later.
// Credentials are only required while the CLS output is enabled.
func (c *Config) Validate() error {
	var errs []error

	if c.CLS.Enabled {
		if c.CLS.Endpoint == "" {
			errs = append(errs, errors.New("cls.endpoint is required"))
		}
		if err := c.CLS.Credentials().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("cls.secretid/cls.secretkey: %w", err))
		}
		if c.CLS.LogSetName == "" {
			errs = append(errs, errors.New("cls.logsetname is required"))
		}
		if c.CLS.TopicName == "" {
			errs = append(errs, errors.New("cls.topicname is required"))
		}
		if c.CLS.Period <= 0 {
			errs = append(errs, fmt.Errorf("cls.period must be positive, got %d", c.CLS.Period))
		}
		if s := strings.ToLower(c.CLS.Scheme); s != "http" && s != "https" {
			errs = append(errs, fmt.Errorf("cls.scheme must be http or https, got %q", c.CLS.Scheme))
		}
	}
	if _, err := c.CLS.Level(); err != nil {
		errs = append(errs, err)
	}
	for _, pattern := range append(append([]string{}, c.Input.Files...), c.Input.Exclude...) {
		if _, err := filepath.Match(pattern, ""); err != nil {
			errs = append(errs, fmt.Errorf("input pattern %q: %w", pattern, err))
		}
	}
	if c.Pipeline.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.buffersize must be positive, got %d", c.Pipeline.BufferSize))
	}

	return errors.Join(errs...)
}

// Load reads configuration from all sources with proper override order.
// Order: defaults -> config file -> environment variables.
func Load(configPath string) (*Config, error) {
	opts := []configloader.Option[Config]{
		configloader.WithDefaults[Config](defaults()),
	}

	// Add file source if path provided or if default config exists
	if configPath != "" {
		opts = append(opts, configloader.WithFile[Config](configPath))
	} else {
		for _, path := range []string{"./config.yaml", "/etc/cls-shipper/config.yaml"} {
			if _, err := os.Stat(path); err == nil {
				opts = append(opts, configloader.WithFile[Config](path))
				break
			}
		}
	}

	opts = append(opts, configloader.WithEnv[Config](EnvPrefix))

	loader := configloader.NewConfigLoader[Config](opts...)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
