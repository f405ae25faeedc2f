// Package config provides configuration management for the editor agent.
// Values come from built-in defaults, an optional TOML file, a .env file
// and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort            = 8790
	DefaultLogLevel        = "info"
	DefaultDataDir         = ".heimdex-editor"
	DefaultRendererURL     = "http://127.0.0.1:8000"
	DefaultPollIntervalMs  = 1000
	DefaultMaxPolls        = 600
	DefaultFrameIntervalMs = 16
	DefaultHTTPTimeoutS    = 60
	DefaultHeadless        = true
	DefaultEnvFile         = ".env"

	// Environment variable names
	EnvConfigFile      = "EDITOR_CONFIG_FILE"
	EnvPort            = "EDITOR_PORT"
	EnvLogLevel        = "EDITOR_LOG_LEVEL"
	EnvDataDir         = "EDITOR_DATA_DIR"
	EnvRendererURL     = "EDITOR_RENDERER_URL"
	EnvPollIntervalMs  = "EDITOR_POLL_INTERVAL_MS"
	EnvMaxPolls        = "EDITOR_MAX_POLLS"
	EnvFrameIntervalMs = "EDITOR_FRAME_INTERVAL_MS"
	EnvFFmpegPath      = "EDITOR_FFMPEG_PATH"
	EnvHeadless        = "EDITOR_HEADLESS"
	EnvHTTPTimeoutS    = "EDITOR_HTTP_TIMEOUT_S"

	// Database filename
	DBFilename = "editor.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	CacheDir() string
	RendererURL() string
	PollInterval() time.Duration
	MaxPolls() int
	FrameInterval() time.Duration
	FFmpegPath() string
	Headless() bool
	HTTPTimeout() time.Duration
	ConfigFile() string
}

// EnvConfig is the resolved configuration.
type EnvConfig struct {
	port            int
	logLevel        string
	dataDir         string
	rendererURL     string
	pollIntervalMs  int
	maxPolls        int
	frameIntervalMs int
	ffmpegPath      string
	headless        bool
	httpTimeoutS    int
	configFile      string
}

// fileConfig mirrors the TOML file. Unset keys keep their defaults.
type fileConfig struct {
	Port            *int   `toml:"port"`
	LogLevel        string `toml:"log_level"`
	DataDir         string `toml:"data_dir"`
	RendererURL     string `toml:"renderer_url"`
	PollIntervalMs  *int   `toml:"poll_interval_ms"`
	MaxPolls        *int   `toml:"max_polls"`
	FrameIntervalMs *int   `toml:"frame_interval_ms"`
	FFmpegPath      string `toml:"ffmpeg_path"`
	Headless        *bool  `toml:"headless"`
	HTTPTimeoutS    *int   `toml:"http_timeout_s"`
}

// New loads .env from the working directory, then the config file and the
// environment.
func New() (*EnvConfig, error) {
	return Load(DefaultEnvFile)
}

// Load is New with explicit .env files. Missing .env files are ignored;
// variables already set in the environment win over .env values.
func Load(envFiles ...string) (*EnvConfig, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &EnvConfig{
		port:            DefaultPort,
		logLevel:        DefaultLogLevel,
		dataDir:         defaultDataDir(),
		rendererURL:     DefaultRendererURL,
		pollIntervalMs:  DefaultPollIntervalMs,
		maxPolls:        DefaultMaxPolls,
		frameIntervalMs: DefaultFrameIntervalMs,
		headless:        DefaultHeadless,
		httpTimeoutS:    DefaultHTTPTimeoutS,
	}

	if err := cfg.applyFile(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *EnvConfig) applyFile() error {
	path, explicit := configFilePath()
	if path == "" {
		return nil
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	c.configFile = path

	if fc.Port != nil {
		c.port = *fc.Port
	}
	if fc.LogLevel != "" {
		c.logLevel = fc.LogLevel
	}
	if fc.DataDir != "" {
		c.dataDir = expandTilde(fc.DataDir)
	}
	if fc.RendererURL != "" {
		c.rendererURL = fc.RendererURL
	}
	if fc.PollIntervalMs != nil {
		c.pollIntervalMs = *fc.PollIntervalMs
	}
	if fc.MaxPolls != nil {
		c.maxPolls = *fc.MaxPolls
	}
	if fc.FrameIntervalMs != nil {
		c.frameIntervalMs = *fc.FrameIntervalMs
	}
	if fc.FFmpegPath != "" {
		c.ffmpegPath = expandTilde(fc.FFmpegPath)
	}
	if fc.Headless != nil {
		c.headless = *fc.Headless
	}
	if fc.HTTPTimeoutS != nil {
		c.httpTimeoutS = *fc.HTTPTimeoutS
	}
	return nil
}

func (c *EnvConfig) applyEnv() error {
	ints := []struct {
		key string
		dst *int
	}{
		{EnvPort, &c.port},
		{EnvPollIntervalMs, &c.pollIntervalMs},
		{EnvMaxPolls, &c.maxPolls},
		{EnvFrameIntervalMs, &c.frameIntervalMs},
		{EnvHTTPTimeoutS, &c.httpTimeoutS},
	}
	for _, v := range ints {
		s := os.Getenv(v.key)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", v.key, err)
		}
		*v.dst = n
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		c.logLevel = ll
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		c.dataDir = expandTilde(dd)
	}
	if u := os.Getenv(EnvRendererURL); u != "" {
		c.rendererURL = u
	}
	if p := os.Getenv(EnvFFmpegPath); p != "" {
		c.ffmpegPath = expandTilde(p)
	}
	if h := os.Getenv(EnvHeadless); h != "" {
		b, err := strconv.ParseBool(h)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		c.headless = b
	}
	return nil
}

func (c *EnvConfig) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
	}
	positive := []struct {
		key string
		val int
	}{
		{EnvPollIntervalMs, c.pollIntervalMs},
		{EnvMaxPolls, c.maxPolls},
		{EnvFrameIntervalMs, c.frameIntervalMs},
		{EnvHTTPTimeoutS, c.httpTimeoutS},
	}
	for _, p := range positive {
		if p.val <= 0 {
			return fmt.Errorf("invalid %s: must be positive, got %d", p.key, p.val)
		}
	}
	c.rendererURL = strings.TrimRight(c.rendererURL, "/")
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// CacheDir holds generated timeline thumbnails.
func (c *EnvConfig) CacheDir() string {
	return filepath.Join(c.dataDir, "thumbnails")
}

// RendererURL is the renderer base URL without a trailing slash.
func (c *EnvConfig) RendererURL() string {
	return c.rendererURL
}

func (c *EnvConfig) PollInterval() time.Duration {
	return time.Duration(c.pollIntervalMs) * time.Millisecond
}

func (c *EnvConfig) MaxPolls() int {
	return c.maxPolls
}

func (c *EnvConfig) FrameInterval() time.Duration {
	return time.Duration(c.frameIntervalMs) * time.Millisecond
}

// FFmpegPath is empty when ffmpeg should be looked up on PATH.
func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

// Headless disables the system tray.
func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.httpTimeoutS) * time.Second
}

// ConfigFile is the TOML file that was read, if any.
func (c *EnvConfig) ConfigFile() string {
	return c.configFile
}

// configFilePath returns EDITOR_CONFIG_FILE when set, otherwise the
// per-user default location.
func configFilePath() (path string, explicit bool) {
	if p := os.Getenv(EnvConfigFile); p != "" {
		return expandTilde(p), true
	}
	var configDir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, "heimdex-editor")
	} else if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", "heimdex-editor")
	} else {
		return "", false
	}
	return filepath.Join(configDir, "config.toml"), false
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
