package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Downloads DownloadsConfig `toml:"downloads"`
	Engine    EngineConfig    `toml:"engine"`
	Control   ControlConfig   `toml:"control"`
	History   HistoryConfig   `toml:"history"`
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
}

// DownloadsConfig contains defaults applied to new jobs.
type DownloadsConfig struct {
	Destination    string `toml:"destination"`
	Format         string `toml:"format"`
	OutputTemplate string `toml:"output_template"`
	SaveThumbnails bool   `toml:"save_thumbnails"`
}

// EngineConfig configures the external yt-dlp process.
type EngineConfig struct {
	Binary       string   `toml:"binary"`
	FFmpegBinary string   `toml:"ffmpeg_binary"`
	IgnoreErrors bool     `toml:"ignore_errors"`
	RecodeVideo  string   `toml:"recode_video"`
	ExtraArgs    []string `toml:"extra_args"`
}

// ControlConfig tunes the pause loop.
type ControlConfig struct {
	PausePollIntervalMS  int `toml:"pause_poll_interval_ms"`
	PausedEmitIntervalMS int `toml:"paused_emit_interval_ms"`
}

// HistoryConfig selects the history ledger backend.
type HistoryConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports configuration values the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.History.Backend) {
	case "json", "sqlite":
	default:
		return fmt.Errorf("%w: history backend must be json or sqlite, got %q", ErrInvalidConfig, c.History.Backend)
	}
	if c.Control.PausePollIntervalMS < 0 || c.Control.PausedEmitIntervalMS < 0 {
		return fmt.Errorf("%w: control intervals must not be negative", ErrInvalidConfig)
	}
	if c.Engine.Binary == "" {
		return fmt.Errorf("%w: engine binary is required", ErrInvalidConfig)
	}
	return nil
}

// PausePollInterval returns how often a paused job re-checks its control flags.
func (c ControlConfig) PausePollInterval() time.Duration {
	return time.Duration(c.PausePollIntervalMS) * time.Millisecond
}

// PausedEmitInterval returns the minimum spacing between repeated paused events.
func (c ControlConfig) PausedEmitInterval() time.Duration {
	return time.Duration(c.PausedEmitIntervalMS) * time.Millisecond
}

// ServerAddr returns the host:port the HTTP API listens on.
func (c ServerConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
