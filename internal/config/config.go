// Package config loads taskdeck settings from defaults, a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppName is the configuration directory name.
const AppName = "taskdeck"

// FileName is the config file inside the configuration directory.
const FileName = "config.yaml"

// DefaultAPIURL is the backend address compiled into the binary. Override
// at build time with -ldflags "-X github.com/naveenspark/taskdeck/internal/config.DefaultAPIURL=...".
var DefaultAPIURL = "http://localhost:4000/api"

// DefaultWebURL is the browser frontend address used for "open in browser".
var DefaultWebURL = "http://localhost:5173"

// Config is the complete taskdeck configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Auth    AuthConfig    `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// APIConfig configures the backend connection.
type APIConfig struct {
	// URL is the backend base address, e.g. http://localhost:4000/api
	URL string `yaml:"url"`
	// WebURL is the browser frontend, used to open projects in a browser.
	WebURL string `yaml:"web_url"`
	// Timeout bounds one request. Zero disables it.
	Timeout time.Duration `yaml:"timeout"`
}

// AuthConfig configures session behavior.
type AuthConfig struct {
	// LogoutOnUnauthorized signs the user out when the backend answers 401.
	LogoutOnUnauthorized bool `yaml:"logout_on_unauthorized"`
}

// StorageConfig configures durable storage.
type StorageConfig struct {
	// Dir holds the session files (default: <config dir>/state).
	Dir string `yaml:"dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// File is the log destination; "-" means stderr (default: <config dir>/taskdeck.log).
	File string `yaml:"file"`
}

// Default returns a Config rooted at dir.
func Default(dir string) *Config {
	return &Config{
		API: APIConfig{
			URL:     DefaultAPIURL,
			WebURL:  DefaultWebURL,
			Timeout: 30 * time.Second,
		},
		Storage: StorageConfig{Dir: filepath.Join(dir, "state")},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, AppName+".log"),
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := validURL("api.url", c.API.URL); err != nil {
		return err
	}
	if c.API.WebURL != "" {
		if err := validURL("api.web_url", c.API.WebURL); err != nil {
			return err
		}
	}
	if c.API.Timeout < 0 {
		return errors.New("api.timeout must not be negative")
	}
	if c.Storage.Dir == "" {
		return errors.New("storage.dir is required")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func validURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL, got %q", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host: %q", field, raw)
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
}

// decodeFile overlays the YAML file at path onto c. Fields absent from the
// file keep their current values.
func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// templateHeader opens the file written by SaveTemplate.
const templateHeader = `# taskdeck configuration.
# Every setting below shows its default and is commented out, so built-in
# defaults (including a build-time api.url) keep applying. Uncomment a line
# to override it.
`

// SaveTemplate writes c as YAML with every line commented out.
func (c *Config) SaveTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	var sb strings.Builder
	sb.WriteString(templateHeader)
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		sb.WriteString("# " + line + "\n")
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// DefaultDir returns $XDG_CONFIG_HOME/taskdeck or ~/.config/taskdeck.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}
