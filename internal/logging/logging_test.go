package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupWithWritersFansOut(t *testing.T) {
	var text, jsonOut bytes.Buffer
	logger := SetupWithWriters(&text, &jsonOut, slog.LevelInfo)

	Component(logger, "index").Info("snapshot rebuilt", "version", 3)
	logger.Debug("dropped")

	if !strings.Contains(text.String(), "snapshot rebuilt") {
		t.Fatalf("expected text output, got %q", text.String())
	}
	if strings.Contains(text.String(), "dropped") {
		t.Fatalf("expected debug record to be filtered, got %q", text.String())
	}

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(jsonOut.Bytes()), &record); err != nil {
		t.Fatalf("expected a single JSON record: %v", err)
	}
	if record["component"] != "index" {
		t.Fatalf("expected component attribute, got %v", record["component"])
	}
}

func TestSetupWritesLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "recall.log")
	logger, cleanup := Setup(logFile, slog.LevelInfo)

	logger.Info("hello")
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup returned error: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Fatalf("expected JSON record in log file, got %q", data)
	}
}
