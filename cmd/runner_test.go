package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytq/internal/repositories"
	"github.com/desertthunder/ytq/internal/services"
	"github.com/desertthunder/ytq/internal/shared"
	tu "github.com/desertthunder/ytq/internal/testing"
)

// testConfig returns defaults pointing every file under a temp dir.
func testConfig(t *testing.T) *shared.Config {
	t.Helper()
	dir := t.TempDir()

	config := shared.DefaultConfig()
	config.History.Backend = "json"
	config.History.Path = filepath.Join(dir, "history.json")
	config.Database.Path = filepath.Join(dir, "ytq.db")
	config.Downloads.Destination = filepath.Join(dir, "media")
	config.Control.PausePollIntervalMS = 5
	config.Control.PausedEmitIntervalMS = 10
	return config
}

func newTestRunner(t *testing.T, engine services.Engine) (*Runner, *bytes.Buffer) {
	t.Helper()
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:     testConfig(t),
		ConfigPath: filepath.Join(t.TempDir(), "config.toml"),
		Engine:     engine,
		Logger:     log.New(io.Discard),
		Output:     output,
	})
	return runner, output
}

// runApp runs the full command tree with a --config path that does not exist, so the injected config is kept.
func runApp(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	missing := filepath.Join(t.TempDir(), "missing.toml")
	return newApp(r).Run(context.Background(), append([]string{"ytq", "--config", missing}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			engine := tu.NewScriptedEngine()
			store := repositories.NewHistoryLedger(filepath.Join(t.TempDir(), "history.json"), nil)

			runner := NewRunner(RunnerOpts{
				Config: config,
				Logger: logger,
				Output: output,
				Engine: engine,
				Store:  store,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.downloadEngine() != engine {
				t.Error("expected engine to be used")
			}
			if got, err := runner.historyStore(context.Background()); err != nil || got != store {
				t.Error("expected store to be used")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Config: nil,
			})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Logger: nil,
			})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Output: nil,
			})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil engine builds yt-dlp", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			svc, ok := runner.downloadEngine().(*services.YTDLPService)
			if !ok {
				t.Fatalf("expected yt-dlp service, got %T", runner.downloadEngine())
			}
			if svc.Name() != "yt-dlp" {
				t.Errorf("unexpected engine name %s", svc.Name())
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				ConfigPath: "/test/path/config.toml",
			})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("Before", func(t *testing.T) {
		t.Run("loads config file", func(t *testing.T) {
			dir := t.TempDir()
			configPath := filepath.Join(dir, "config.toml")
			historyPath := filepath.Join(dir, "custom-history.json")
			content := "[history]\nbackend = \"json\"\npath = \"" + filepath.ToSlash(historyPath) + "\"\n\n[log]\nlevel = \"debug\"\n"
			if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			runner, _ := newTestRunner(t, tu.NewScriptedEngine())
			err := newApp(runner).Run(context.Background(), []string{"ytq", "--config", configPath, "history", "list"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if runner.config.History.Path != filepath.ToSlash(historyPath) {
				t.Errorf("expected history path from file, got %s", runner.config.History.Path)
			}
			if runner.configPath != configPath {
				t.Errorf("expected config path to be remembered, got %s", runner.configPath)
			}
			if runner.logger.GetLevel() != log.DebugLevel {
				t.Errorf("expected debug level, got %v", runner.logger.GetLevel())
			}
		})

		t.Run("log level flag wins", func(t *testing.T) {
			runner, _ := newTestRunner(t, tu.NewScriptedEngine())
			missing := filepath.Join(t.TempDir(), "missing.toml")
			err := newApp(runner).Run(context.Background(), []string{"ytq", "--config", missing, "--log-level", "error", "history", "list"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if runner.logger.GetLevel() != log.ErrorLevel {
				t.Errorf("expected error level, got %v", runner.logger.GetLevel())
			}
		})

		t.Run("rejects invalid config", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(configPath, []byte("[history]\nbackend = \"mongo\"\n"), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			runner, _ := newTestRunner(t, tu.NewScriptedEngine())
			err := newApp(runner).Run(context.Background(), []string{"ytq", "--config", configPath, "history", "list"})
			if !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			data := map[string]string{"key": "value"}
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("hello %s", "world")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := []string{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names = append(names, cmd.Name)
		}

		if got := strings.Join(names, ","); got != "download,monitor,serve,history,setup" {
			t.Errorf("unexpected commands %s", got)
		}
	})
}
