package shared

import (
	"path/filepath"
	"testing"
)

func TestOpenCommand(t *testing.T) {
	orig := getRuntime
	t.Cleanup(func() { getRuntime = orig })

	tc := []struct {
		name    string
		goos    string
		wantBin string
		wantErr bool
	}{
		{name: "macOS", goos: "darwin", wantBin: "open"},
		{name: "Linux", goos: "linux", wantBin: "xdg-open"},
		{name: "Windows", goos: "windows", wantBin: "explorer"},
		{name: "unsupported", goos: "plan9", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			getRuntime = func() string { return tt.goos }

			cmd, err := openCommand("/tmp/media")
			if (err != nil) != tt.wantErr {
				t.Fatalf("openCommand() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if filepath.Base(cmd.Args[0]) != tt.wantBin {
				t.Errorf("openCommand() binary = %s, want %s", cmd.Args[0], tt.wantBin)
			}
			if cmd.Args[len(cmd.Args)-1] != "/tmp/media" {
				t.Errorf("openCommand() should pass the path last, got %v", cmd.Args)
			}
		})
	}
}

func TestOpenPathMissing(t *testing.T) {
	if err := OpenPath(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}
