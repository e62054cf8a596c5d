package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitSetsDefaultLevel(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(original)
	})

	Init(false)
	logger := slog.Default()
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("expected info to be disabled by default")
	}
	if !logger.Enabled(context.Background(), slog.LevelWarn) {
		t.Fatalf("expected warn to be enabled by default")
	}

	Init(true)
	logger = slog.Default()
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("expected debug to be enabled with verbose")
	}
}

func TestNewWritesToStderrAndFile(t *testing.T) {
	var stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "run.log")

	logger := New(Options{File: path, Stderr: &stderr})
	logger.Info("pass started", slog.String("pass", "v2"))
	logger.Debug("hidden")
	if err := logger.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	for name, content := range map[string]string{"stderr": stderr.String(), "file": readFile(t, path)} {
		if !strings.Contains(content, "pass started") || !strings.Contains(content, "pass=v2") {
			t.Fatalf("expected record in %s, got %q", name, content)
		}
		if !strings.Contains(content, "run_id=") {
			t.Fatalf("expected run_id attribute in %s, got %q", name, content)
		}
		if strings.Contains(content, "hidden") {
			t.Fatalf("debug record leaked into %s", name)
		}
	}
}

func TestNewVerboseEnablesDebug(t *testing.T) {
	var stderr bytes.Buffer
	logger := New(Options{Verbose: true, Stderr: &stderr})
	logger.Debug("detail")
	if !strings.Contains(stderr.String(), "detail") {
		t.Fatalf("expected debug record, got %q", stderr.String())
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("close without file should be a no-op, got %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}
