package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	MediaDir string `toml:"media_dir"`
	LogDir   string `toml:"log_dir"`
}

// API contains the HTTP bind address and authentication settings.
type API struct {
	Bind      string `toml:"bind"`
	Token     string `toml:"token"`
	JWTSecret string `toml:"jwt_secret"`
}

// Store selects the record store backend.
type Store struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// Acquire contains configuration for the media downloader.
type Acquire struct {
	Binary         string   `toml:"binary"`
	Format         string   `toml:"format"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	MinFreeMB      int      `toml:"min_free_mb"`
	ExtraArgs      []string `toml:"extra_args"`
}

// Transcription contains configuration for the speech-to-text endpoint.
type Transcription struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LLM contains the text generation connection settings.
type LLM struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Referer        string  `toml:"referer"`
	Title          string  `toml:"title"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Temperature    float64 `toml:"temperature"`
	TopP           float64 `toml:"top_p"`
	MaxTokens      int     `toml:"max_tokens"`
	// RetryBlocked treats explicit content-policy blocks as retryable.
	RetryBlocked bool `toml:"retry_blocked"`
}

// Retry contains the per-stage retry policy.
type Retry struct {
	MaxAttempts      int    `toml:"max_attempts"`
	BaseDelaySeconds int    `toml:"base_delay_seconds"`
	MaxDelaySeconds  int    `toml:"max_delay_seconds"`
	JitterPercent    uint64 `toml:"jitter_percent"`
}

// Cache controls reuse of completed notes for repeated submissions.
type Cache struct {
	Enabled bool `toml:"enabled"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	Workers            int `toml:"workers"`
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Feeds contains configuration for podcast feed imports.
type Feeds struct {
	MaxItems       int `toml:"max_items"`
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Notifications configures ntfy delivery of job outcomes.
type Notifications struct {
	// NtfyTopic is the full topic URL, e.g. https://ntfy.sh/my-notes.
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for notesmith.
//
// Configuration sections by subsystem:
//   - Paths: data, media, and log directories
//   - API: HTTP bind address and bearer authentication
//   - Store: record store driver (sqlite or postgres)
//   - Acquire: yt-dlp download settings
//   - Transcription: OpenAI-compatible speech-to-text endpoint
//   - LLM: chat completion endpoint used for note synthesis
//   - Retry: per-stage attempt budget and backoff
//   - Cache: reuse of completed notes for identical sources
//   - Workflow: worker count, polling intervals, and heartbeats
//   - Feeds: podcast feed import limits
//   - Notifications: ntfy topic for job outcomes
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	Store         Store         `toml:"store"`
	Acquire       Acquire       `toml:"acquire"`
	Transcription Transcription `toml:"transcription"`
	LLM           LLM           `toml:"llm"`
	Retry         Retry         `toml:"retry"`
	Cache         Cache         `toml:"cache"`
	Workflow      Workflow      `toml:"workflow"`
	Feeds         Feeds         `toml:"feeds"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("notesmith.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon and CLI operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.MediaDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "notesmith.db")
}

// LockPath returns the daemon lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "notesmithd.lock")
}

// PIDPath returns the daemon pid file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "notesmithd.pid")
}

// RetryPolicy returns the retry settings as durations.
func (c *Config) RetryPolicy() (maxAttempts int, base, maxDelay time.Duration, jitter uint64) {
	return c.Retry.MaxAttempts,
		time.Duration(c.Retry.BaseDelaySeconds) * time.Second,
		time.Duration(c.Retry.MaxDelaySeconds) * time.Second,
		c.Retry.JitterPercent
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
