// Command cellrun serves the notebook cell kernel.
//
// Usage:
//
//	cellrun [serve] [flags]   HTTP service (default)
//	cellrun repl [flags]      interactive prompt, one cell per entry
//	cellrun mcp [flags]       MCP over stdio
//	cellrun version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/jonwraymond/cellexec/code"
	"github.com/jonwraymond/cellexec/config"
	"github.com/jonwraymond/cellexec/exec"
	"github.com/jonwraymond/cellexec/internal/logging"
	"github.com/jonwraymond/cellexec/server"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "serve":
		return cmdServe(args)
	case "repl":
		return cmdRepl(args)
	case "mcp":
		return cmdMCP(args)
	case "version":
		fmt.Println("cellrun", version)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want serve, repl, mcp or version)\n", cmd)
		return 2
	}
}

// loadConfig parses the common flags and layers them over the file and
// environment configuration.
func loadConfig(name string, args []string) (config.Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("CELLRUN_CONFIG"), "Path to a YAML config file (optional)")
	envFile := fs.String("env-file", ".env", "Path to a .env file (optional)")
	host := fs.String("host", "", "Listen host")
	port := fs.Int("port", 0, "Listen port")
	basePath := fs.String("base-path", "", "Route prefix, e.g. /kernel")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "", "Log format: json or console")
	timeout := fs.Duration("cell-timeout", 0, "Per-cell evaluation timeout")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(config.Options{File: *configPath, DotEnv: *envFile})
	if err != nil {
		return config.Config{}, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = *host
		case "port":
			cfg.Port = *port
		case "base-path":
			cfg.BasePath = *basePath
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		case "cell-timeout":
			cfg.CellTimeout = *timeout
		}
	})
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (zerolog.Logger, error) {
	return logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
}

func newExec(cfg config.Config, logger zerolog.Logger, reg prometheus.Registerer, disableCapture bool) (*exec.Exec, error) {
	engine, err := code.NewStarlarkEngine(code.Config{
		DefaultTimeout:    cfg.CellTimeout,
		MaxExecutionSteps: cfg.MaxExecutionSteps,
		Logger:            logging.NewLogf(logger, "engine"),
	})
	if err != nil {
		return nil, err
	}
	return exec.New(exec.Options{
		Engine:               engine,
		Logger:               logging.NewLogf(logger, "exec"),
		DefaultTimeout:       cfg.CellTimeout,
		MaxCodeBytes:         cfg.MaxCodeBytes,
		Registerer:           reg,
		DisableCapture:       disableCapture,
		DiscardOutputOnFault: cfg.DiscardOutputOnFault,
	})
}

func logConfig(logger zerolog.Logger, cfg config.Config) {
	logger.Info().
		Str("version", version).
		Str("addr", cfg.Addr()).
		Str("basePath", cfg.BasePath).
		Dur("cellTimeout", cfg.CellTimeout).
		Int("maxCodeBytes", cfg.MaxCodeBytes).
		Uint64("maxExecutionSteps", cfg.MaxExecutionSteps).
		Float64("rateLimit", cfg.RateLimit).
		Int("rateBurst", cfg.RateBurst).
		Bool("mcp", cfg.EnableMCP).
		Bool("metrics", cfg.EnableMetrics).
		Bool("discardOutputOnFault", cfg.DiscardOutputOnFault).
		Msg("starting cellrun")
}

func cmdServe(args []string) int {
	cfg, err := loadConfig("serve", args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cellrun:", err)
		return 2
	}
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cellrun:", err)
		return 2
	}
	logConfig(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var reg *prometheus.Registry
	var registerer prometheus.Registerer
	var gatherer prometheus.Gatherer
	if cfg.EnableMetrics {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		registerer, gatherer = reg, reg
	}

	executor, err := newExec(cfg, logger, registerer, false)
	if err != nil {
		logger.Error().Err(err).Msg("init executor")
		return 1
	}
	srv, err := server.New(ctx, server.Options{
		Exec:      executor,
		Logger:    &logger,
		BasePath:  cfg.BasePath,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		EnableMCP: cfg.EnableMCP,
		Gatherer:  gatherer,
		Version:   version,
	})
	if err != nil {
		logger.Error().Err(err).Msg("init server")
		return 1
	}
	defer srv.Close()

	if err := srv.ListenAndServe(ctx, cfg.Addr(), cfg.ShutdownTimeout); err != nil {
		logger.Error().Err(err).Msg("serve")
		return 1
	}
	logger.Info().Msg("stopped")
	return 0
}

func cmdMCP(args []string) int {
	cfg, err := loadConfig("mcp", args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cellrun:", err)
		return 2
	}
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cellrun:", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	executor, err := newExec(cfg, logger, nil, false)
	if err != nil {
		logger.Error().Err(err).Msg("init executor")
		return 1
	}
	srv, err := server.New(ctx, server.Options{Exec: executor, Logger: &logger, EnableMCP: true, Version: version})
	if err != nil {
		logger.Error().Err(err).Msg("init server")
		return 1
	}
	defer srv.Close()

	if err := srv.ServeStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("mcp")
		return 1
	}
	return 0
}
