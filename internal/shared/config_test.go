package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.History.Backend != "json" {
			t.Errorf("expected history backend json, got %s", config.History.Backend)
		}

		if config.History.Path != "~/.ytq/history.json" {
			t.Errorf("expected history path ~/.ytq/history.json, got %s", config.History.Path)
		}

		if config.Engine.Binary != "yt-dlp" {
			t.Errorf("expected engine binary yt-dlp, got %s", config.Engine.Binary)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if !config.Engine.IgnoreErrors {
			t.Error("expected ignore_errors on by default")
		}

		if config.Engine.RecodeVideo != "mp4" {
			t.Errorf("expected recode_video mp4, got %q", config.Engine.RecodeVideo)
		}

		if config.Control.PausedEmitInterval() != 500*time.Millisecond {
			t.Errorf("expected paused emit interval 500ms, got %v", config.Control.PausedEmitInterval())
		}

		if config.Control.PausePollInterval() != 250*time.Millisecond {
			t.Errorf("expected pause poll interval 250ms, got %v", config.Control.PausePollInterval())
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Downloads.Format != DefaultConfig().Downloads.Format {
			t.Errorf("created config format doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[downloads]
destination = "/data/media"
format = "best"

[engine]
binary = "/opt/bin/yt-dlp"
extra_args = ["--no-mtime"]
recode_video = ""

[history]
backend = "sqlite"

[server]
host = "0.0.0.0"
port = 8080
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Downloads.Destination != "/data/media" {
			t.Errorf("expected destination /data/media, got %s", config.Downloads.Destination)
		}

		if config.Engine.Binary != "/opt/bin/yt-dlp" {
			t.Errorf("expected engine binary /opt/bin/yt-dlp, got %s", config.Engine.Binary)
		}

		if len(config.Engine.ExtraArgs) != 1 || config.Engine.ExtraArgs[0] != "--no-mtime" {
			t.Errorf("unexpected extra args: %v", config.Engine.ExtraArgs)
		}

		if config.Engine.RecodeVideo != "" {
			t.Errorf("expected recode_video cleared by the file, got %q", config.Engine.RecodeVideo)
		}

		if !config.Engine.IgnoreErrors {
			t.Error("expected ignore_errors default kept when the file omits it")
		}

		if config.History.Backend != "sqlite" {
			t.Errorf("expected history backend sqlite, got %s", config.History.Backend)
		}

		if config.Server.ServerAddr() != "0.0.0.0:8080" {
			t.Errorf("expected server addr 0.0.0.0:8080, got %s", config.Server.ServerAddr())
		}

		if config.Downloads.OutputTemplate != DefaultConfig().Downloads.OutputTemplate {
			t.Errorf("missing keys should keep defaults, got output template %q", config.Downloads.OutputTemplate)
		}
	})

	t.Run("LoadConfig rejects unknown backend", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[history]\nbackend = \"mongo\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}
