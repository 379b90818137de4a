// Package main is the entry point for the product gateway.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/vyrodovalexey/productgw/internal/config"
	"github.com/vyrodovalexey/productgw/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	if err := loadEnvFile(getEnvOrDefault("PRODUCTGW_ENV_FILE", ".env")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load env file: %v\n", err)
		os.Exit(1)
	}

	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags, nil)
	cfg := loadAndValidateConfig(flags.configPath, logger)
	logger = initLogger(flags, &cfg.Observability.Logging)
	defer func() { _ = logger.Sync() }()

	app, err := initApplication(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", observability.Error(err))
	}

	runService(app, flags.configPath, logger)
}

// loadEnvFile loads KEY=VALUE pairs from path into the environment. A
// missing file is not an error. Variables already set win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("PRODUCTGW_CONFIG_PATH", "configs/productgw.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("PRODUCTGW_LOG_LEVEL", ""),
		"Log level (debug, info, warn, error); overrides the configuration file")
	logFormat := flag.String("log-format", getEnvOrDefault("PRODUCTGW_LOG_FORMAT", ""),
		"Log format (json, console); overrides the configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("productgw version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger builds the logger from the logging section, if any, with
// flag overrides applied, and installs it as the global logger.
func initLogger(flags cliFlags, logging *config.LoggingConfig) observability.Logger {
	logCfg, err := loggerConfig(flags, logging)
	if err == nil {
		var logger observability.Logger
		logger, err = observability.NewLogger(logCfg)
		if err == nil {
			observability.SetGlobalLogger(logger)
			return logger
		}
	}

	fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
	os.Exit(1)
	return nil
}

func loggerConfig(flags cliFlags, logging *config.LoggingConfig) (observability.LogConfig, error) {
	logCfg := observability.DefaultLogConfig()
	if logging != nil {
		logCfg.Level = logging.Level
		logCfg.Format = logging.Format
		logCfg.Output = logging.Output
	}
	if flags.logLevel != "" {
		logCfg.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		logCfg.Format = flags.logFormat
	}

	switch logCfg.Format {
	case "json", "console":
	default:
		return logCfg, fmt.Errorf("unknown log format %q", logCfg.Format)
	}
	return logCfg, nil
}

// loadAndValidateConfig loads and validates the configuration.
func loadAndValidateConfig(configPath string, logger observability.Logger) *config.Config {
	logger.Info("starting productgw",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}

	if err := config.ValidateConfig(cfg); err != nil {
		logger.Fatal("invalid configuration", observability.Error(err))
	}

	logger.Info("configuration loaded",
		observability.String("base_path", cfg.BasePath),
		observability.String("upstream", cfg.Upstream.BaseURL),
		observability.String("shape", cfg.Upstream.Shape),
		observability.String("policy", cfg.Upstream.Policy),
		observability.Bool("circuit_breaker", cfg.Upstream.CircuitBreaker.Enabled),
	)

	return cfg
}
