package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CELLRUN"

// ErrInvalid indicates a configuration that cannot be used.
var ErrInvalid = errors.New("config: invalid")

// Config holds the service configuration.
type Config struct {
	Host string `yaml:"host" envconfig:"HOST"`
	Port int    `yaml:"port" envconfig:"PORT"`

	// BasePath prefixes every HTTP route, e.g. "/kernel".
	BasePath string `yaml:"basePath" envconfig:"BASE_PATH"`

	LogLevel  string `yaml:"logLevel" envconfig:"LOG_LEVEL"`
	LogFormat string `yaml:"logFormat" envconfig:"LOG_FORMAT"`

	// CellTimeout bounds each cell evaluation.
	CellTimeout time.Duration `yaml:"cellTimeout" envconfig:"CELL_TIMEOUT"`

	// MaxCodeBytes rejects larger cell bodies.
	MaxCodeBytes int `yaml:"maxCodeBytes" envconfig:"MAX_CODE_BYTES"`

	// MaxExecutionSteps bounds interpreter steps per task; zero is unlimited.
	MaxExecutionSteps uint64 `yaml:"maxExecutionSteps" envconfig:"MAX_EXECUTION_STEPS"`

	// RateLimit is the sustained per-client request rate; zero disables
	// admission limiting.
	RateLimit float64 `yaml:"rateLimit" envconfig:"RATE_LIMIT"`
	RateBurst int     `yaml:"rateBurst" envconfig:"RATE_BURST"`

	EnableMCP            bool `yaml:"enableMcp" envconfig:"ENABLE_MCP"`
	EnableMetrics        bool `yaml:"enableMetrics" envconfig:"ENABLE_METRICS"`
	DiscardOutputOnFault bool `yaml:"discardOutputOnFault" envconfig:"DISCARD_OUTPUT_ON_FAULT"`

	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            2010,
		LogLevel:        "info",
		LogFormat:       "json",
		CellTimeout:     30 * time.Second,
		MaxCodeBytes:    1 << 20,
		RateLimit:       20,
		RateBurst:       40,
		EnableMCP:       true,
		EnableMetrics:   true,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Options selects the sources Load reads.
type Options struct {
	// File is a YAML config path. Empty skips the file.
	File string

	// DotEnv is a .env path. A missing file is ignored.
	// Default: ".env"
	DotEnv string

	// SkipEnv disables environment overrides.
	SkipEnv bool
}

// Load builds a Config from the defaults and the sources in opts.
// The result is not validated.
func Load(opts Options) (Config, error) {
	cfg := Default()

	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", opts.File, err)
		}
		if err := cfg.mergeYAML(data); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", opts.File, err)
		}
	}

	if opts.SkipEnv {
		return cfg, nil
	}

	dotenv := opts.DotEnv
	if dotenv == "" {
		dotenv = ".env"
	}
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", dotenv, err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("environment: %w", err)
	}
	return cfg, nil
}

func (c *Config) mergeYAML(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks that all fields hold usable values.
// Returns ErrInvalid naming every offending field.
func (c *Config) Validate() error {
	var invalid []string

	if c.Port < 0 || c.Port > 65535 {
		invalid = append(invalid, "Port")
	}
	if c.BasePath != "" && (!strings.HasPrefix(c.BasePath, "/") || strings.HasSuffix(c.BasePath, "/")) {
		invalid = append(invalid, "BasePath")
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		invalid = append(invalid, "LogFormat")
	}
	if c.CellTimeout < 0 {
		invalid = append(invalid, "CellTimeout")
	}
	if c.MaxCodeBytes < 0 {
		invalid = append(invalid, "MaxCodeBytes")
	}
	if c.RateLimit < 0 || (c.RateLimit > 0 && c.RateBurst < 1) {
		invalid = append(invalid, "RateLimit")
	}
	if c.ShutdownTimeout < 0 {
		invalid = append(invalid, "ShutdownTimeout")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("%w: invalid fields: %s", ErrInvalid, strings.Join(invalid, ", "))
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
