package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{
		Level:  slog.LevelInfo,
		Format: "text",
		Output: &buf,
	})

	logger.Info("probe attached", "comm_prefix", "hello")

	output := buf.String()
	if !strings.Contains(output, "probe attached") {
		t.Errorf("expected message in output, got: %s", output)
	}
	if !strings.Contains(output, "comm_prefix=hello") {
		t.Errorf("expected attribute in output, got: %s", output)
	}
}

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{
		Level:  slog.LevelInfo,
		Format: "json",
		Output: &buf,
	})

	logger.Info("probe attached", "pid", 42)

	output := buf.String()
	if !strings.Contains(output, `"msg":"probe attached"`) {
		t.Errorf("expected JSON msg field, got: %s", output)
	}
	if !strings.Contains(output, `"pid":42`) {
		t.Errorf("expected JSON pid field, got: %s", output)
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{
		Level:  slog.LevelWarn,
		Format: "text",
		Output: &buf,
	})

	logger.Debug("per-event noise")
	logger.Info("per-event detail")
	if buf.Len() != 0 {
		t.Errorf("expected info and debug filtered at warn level, got: %s", buf.String())
	}

	logger.Warn("SIGCONT failed")
	if !strings.Contains(buf.String(), "SIGCONT failed") {
		t.Error("warn message missing")
	}
}

func TestSetDefault(t *testing.T) {
	old := Default()
	defer SetDefault(old)

	var buf bytes.Buffer
	SetDefault(NewLogger(Config{Level: slog.LevelDebug, Output: &buf}))

	Debug("debugger running", "pid", 1)
	if !strings.Contains(buf.String(), "debugger running") {
		t.Errorf("default logger not replaced, got: %s", buf.String())
	}
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: slog.LevelInfo, Output: &buf})

	WithStage(WithComm(WithPID(logger, 42), "hello"), "bpf").Info("skip")

	output := buf.String()
	for _, want := range []string{"pid=42", "comm=hello", "stage=bpf"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"", slog.LevelWarn},
		{"0", slog.LevelWarn},
		{"1", slog.LevelDebug},
		{"yes", slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run("value="+tt.value, func(t *testing.T) {
			t.Setenv(EnvDebug, tt.value)
			if got := levelFromEnv(); got != tt.want {
				t.Errorf("levelFromEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}
