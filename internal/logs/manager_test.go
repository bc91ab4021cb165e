package logs

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetupTeesJSONToFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "hpa-bench.log")

	closer, err := Setup(Options{File: path, Console: &console, NoColor: true})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Info().Str("arch", "monolith").Msg("hello")
	log.Debug().Msg("hidden")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), `"arch":"monolith"`) || !strings.Contains(string(data), `"message":"hello"`) {
		t.Errorf("Expected JSON line, got %s", data)
	}
	if strings.Contains(string(data), "hidden") {
		t.Error("Debug message must be filtered at info level")
	}
	if !strings.Contains(console.String(), "hello") || !strings.Contains(console.String(), "arch=monolith") {
		t.Errorf("Unexpected console output %q", console.String())
	}
}

func TestSetupDebugLevel(t *testing.T) {
	var console bytes.Buffer
	if _, err := Setup(Options{Debug: true, Console: &console, NoColor: true}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Debug().Msg("visible")
	if !strings.Contains(console.String(), "visible") {
		t.Errorf("Expected debug output, got %q", console.String())
	}
}

func TestRotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	os.WriteFile(path, []byte("current"), 0644)
	os.WriteFile(filepath.Join(dir, "app.1.log"), []byte("older"), 0644)

	rotate(path)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected current file to be moved")
	}
	if data, _ := os.ReadFile(filepath.Join(dir, "app.1.log")); string(data) != "current" {
		t.Errorf("Unexpected app.1.log %q", data)
	}
	if data, _ := os.ReadFile(filepath.Join(dir, "app.2.log")); string(data) != "older" {
		t.Errorf("Unexpected app.2.log %q", data)
	}
}
