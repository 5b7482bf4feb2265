package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelDebug, "table")
	log.Info("detected tables", "count", 2)

	got := buf.String()
	if !strings.HasPrefix(got, "[table] INFO: detected tables (count=2) [") {
		t.Errorf("unexpected line: %q", got)
	}
}

func TestHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelInfo, "signage")
	log.Debug("hidden")
	log.Warn("shown")

	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Errorf("debug record leaked: %q", got)
	}
	if !strings.Contains(got, "WARNING: shown") {
		t.Errorf("warn record missing: %q", got)
	}
}

func TestHandlerGroup(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelInfo, "server").WithGroup("req")
	log.Info("done", "id", "abc")

	if !strings.Contains(buf.String(), "req.id=abc") {
		t.Errorf("group prefix missing: %q", buf.String())
	}
}

func TestGetLogger(t *testing.T) {
	if GetLogger("x") == nil {
		t.Fatal("GetLogger returned nil")
	}
}
