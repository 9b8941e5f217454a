package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"INFO", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"warning", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"fatal", log.FatalLevel},
		{"", log.InfoLevel},
		{"verbose", log.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetOutput_CapturesKeyValues(t *testing.T) {
	orig := Logger
	defer func() { Logger = orig }()

	var buf bytes.Buffer
	SetOutput(&buf)
	Info("routed prompt", "target", "LOG_ANALYSIS")

	out := buf.String()
	if !strings.Contains(out, "routed prompt") {
		t.Errorf("output = %q, want message", out)
	}
	if !strings.Contains(out, "target=LOG_ANALYSIS") {
		t.Errorf("output = %q, want target=LOG_ANALYSIS", out)
	}
}

func TestConfigure_FileAndLevel(t *testing.T) {
	orig := Logger
	defer func() { Logger = orig }()

	path := filepath.Join(t.TempDir(), "sensei.log")
	if err := Configure("warn", path, true); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	Info("dropped")
	Warn("kept", "chat", "abc")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "dropped") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, `"msg":"kept"`) {
		t.Errorf("output = %q, want JSON warn line", out)
	}
}
