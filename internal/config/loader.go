package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Environment variables that override the config file.
const (
	EnvAPIURL               = "TASKDECK_API_URL"
	EnvWebURL               = "TASKDECK_WEB_URL"
	EnvStorageDir           = "TASKDECK_STORAGE_DIR"
	EnvLogLevel             = "TASKDECK_LOG_LEVEL"
	EnvLogoutOnUnauthorized = "TASKDECK_LOGOUT_ON_UNAUTHORIZED"
	EnvTimeout              = "TASKDECK_TIMEOUT"
)

// Overrides are values set on the command line. Empty fields are ignored.
type Overrides struct {
	APIURL   string
	LogLevel string
	LogFile  string
}

// Loader applies the layers in order: defaults, config file, environment,
// overrides.
type Loader struct {
	dir    string
	getenv func(string) string
	logger *slog.Logger
}

// NewLoader creates a loader reading from dir. An empty dir means DefaultDir.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	if dir == "" {
		dir = DefaultDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{dir: dir, getenv: os.Getenv, logger: logger}
}

// Dir is the configuration directory.
func (l *Loader) Dir() string {
	return l.dir
}

// Path is the config file location.
func (l *Loader) Path() string {
	return filepath.Join(l.dir, FileName)
}

// Load builds and validates the configuration.
func (l *Loader) Load(o Overrides) (*Config, error) {
	cfg := Default(l.dir)

	path := l.Path()
	switch err := cfg.decodeFile(path); {
	case err == nil:
		l.logger.Debug("loaded config file", slog.String("path", path))
	case errors.Is(err, fs.ErrNotExist):
		l.logger.Debug("no config file", slog.String("path", path))
	default:
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	if o.APIURL != "" {
		cfg.API.URL = o.APIURL
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFile != "" {
		cfg.Log.File = o.LogFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	if v := l.getenv(EnvAPIURL); v != "" {
		cfg.API.URL = v
	}
	if v := l.getenv(EnvWebURL); v != "" {
		cfg.API.WebURL = v
	}
	if v := l.getenv(EnvStorageDir); v != "" {
		cfg.Storage.Dir = v
	}
	if v := l.getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := l.getenv(EnvLogoutOnUnauthorized); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLogoutOnUnauthorized, err)
		}
		cfg.Auth.LogoutOnUnauthorized = b
	}
	if v := l.getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		cfg.API.Timeout = d
	}
	return nil
}

// EnsureFile writes a commented config template if no file exists. The
// template sets nothing, so later builds with another DefaultAPIURL still
// take effect.
func (l *Loader) EnsureFile() (bool, error) {
	path := l.Path()
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := Default(l.dir).SaveTemplate(path); err != nil {
		return false, err
	}
	l.logger.Info("created default config", slog.String("path", path))
	return true, nil
}
