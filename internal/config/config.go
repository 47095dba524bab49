// Package config loads sprucedb's runtime configuration from the
// environment, with an optional .env file for local development.
package config

import (
	"io"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	envBasePath       = "SPRUCE_BASE_PATH"
	envLogLevel       = "SPRUCE_LOG_LEVEL"
	envLogFormat      = "SPRUCE_LOG_FORMAT"
	envLogFile        = "SPRUCE_LOG_FILE"
	envFlushThreshold = "SPRUCE_MEMTABLE_FLUSH_THRESHOLD"
	envIndexInterval  = "SPRUCE_SSTABLE_INDEX_INTERVAL"

	defaultBasePath       = "spruce_data"
	defaultFlushThreshold = 1000
	defaultIndexInterval  = 1000
)

// Config is the resolved set of options the coordinator and its
// ambient collaborators (logging, CLI) read at startup.
type Config struct {
	BasePath               string
	MemtableFlushThreshold int
	SSTableIndexInterval   int
	LogLevel               string
	LogFormat              string
	LogFile                string
}

// Load reads a .env file if present (missing is not an error), then
// resolves Config from the environment, applying defaults for unset
// variables.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "config: load .env")
	}

	cfg := Config{
		BasePath:               envOr(envBasePath, defaultBasePath),
		LogLevel:               envOr(envLogLevel, "info"),
		LogFormat:              envOr(envLogFormat, "text"),
		LogFile:                os.Getenv(envLogFile),
		MemtableFlushThreshold: defaultFlushThreshold,
		SSTableIndexInterval:   defaultIndexInterval,
	}

	if v := os.Getenv(envFlushThreshold); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, errors.Wrapf(err, "config: parse %s", envFlushThreshold)
		}
		cfg.MemtableFlushThreshold = n
	}
	if v := os.Getenv(envIndexInterval); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, errors.Wrapf(err, "config: parse %s", envIndexInterval)
		}
		cfg.SSTableIndexInterval = n
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewLogger builds the package-level logrus logger per cfg. LogFile,
// when set, duplicates output there alongside stderr rather than
// replacing it.
func NewLogger(cfg Config) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "config: parse log level %q", cfg.LogLevel)
	}
	logger.SetLevel(level)

	switch cfg.LogFormat {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, errors.Wrap(err, "config: open log file")
		}
		logger.SetOutput(io.MultiWriter(os.Stderr, f))
	}

	return logger, nil
}
