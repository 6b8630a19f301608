package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("json", "info", &buf)

	logger.Info("auth", "login_failed", map[string]interface{}{
		"username":   "testuser",
		"client_key": "192.168.1.100",
	})

	output := buf.String()

	// Verify it's valid JSON
	var logEntry map[string]interface{}
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}

	// Verify required fields
	if logEntry["level"] != "info" {
		t.Errorf("Expected level info, got %v", logEntry["level"])
	}

	if logEntry["component"] != "auth" {
		t.Errorf("Expected component auth, got %v", logEntry["component"])
	}

	if logEntry["event"] != "login_failed" {
		t.Errorf("Expected event login_failed, got %v", logEntry["event"])
	}

	if logEntry["client_key"] != "192.168.1.100" {
		t.Errorf("Expected client_key field, got %v", logEntry["client_key"])
	}

	if _, ok := logEntry["timestamp"]; !ok {
		t.Error("Expected timestamp field")
	}
}

func TestTextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("text", "info", &buf)

	logger.Info("server", "startup", map[string]interface{}{
		"listen_address": "127.0.0.1:5000",
	})

	output := buf.String()
	t.Logf("Text output: %q", output)

	if !strings.Contains(output, "level=info") {
		t.Error("Expected output to contain level=info")
	}

	if !strings.Contains(output, "component=server") {
		t.Error("Expected output to contain component")
	}

	if !strings.Contains(output, "event=startup") {
		t.Error("Expected output to contain event")
	}
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("text", "warn", &buf)

	// Info should not be logged
	logger.Info("test", "info_event", nil)
	if buf.Len() > 0 {
		t.Error("Info message should not be logged at warn level")
	}

	// Warn should be logged
	logger.Warn("test", "warn_event", nil)
	if buf.Len() == 0 {
		t.Error("Warn message should be logged at warn level")
	}

	if logger.Enabled(DEBUG) {
		t.Error("Debug should be disabled at warn level")
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warden.log")

	logger, closer, err := Open("json", "info", "file", path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	logger.Error("server", "boom", nil)
	if err := closer.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
