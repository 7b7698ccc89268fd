package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		level     log.Level
		debug     bool
		wantLines int
	}{
		{log.InfoLevel, false, 1},
		{log.InfoLevel, true, 1},
		{log.DebugLevel, true, 2},
		{log.WarnLevel, false, 0},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		l := newLogger(&buf, tt.level)
		l.Info("info")
		if tt.debug {
			l.Debug("debug")
		}
		if got := strings.Count(buf.String(), "\n"); got != tt.wantLines {
			t.Errorf("level %v: lines = %d, want %d\n%s", tt.level, got, tt.wantLines, buf.String())
		}
	}
}

func TestScriptLoggerPrefix(t *testing.T) {
	var buf bytes.Buffer
	scriptLogger(newLogger(&buf, log.InfoLevel), "aurora").Info("hello")
	if got := buf.String(); !strings.Contains(got, "aurora") || !strings.Contains(got, "hello") {
		t.Errorf("output = %q, want prefix and message", got)
	}
}

func TestStopwatchDone(t *testing.T) {
	var buf bytes.Buffer
	startStopwatch(newLogger(&buf, log.InfoLevel)).done("Checked %d script(s)", 3)
	got := buf.String()
	if !strings.Contains(got, "Checked 3 script(s) (") || !strings.HasSuffix(strings.TrimSpace(got), "s)") {
		t.Errorf("output = %q", got)
	}
}

func TestLoggerContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("loggerFromContext without a logger should return log.Default()")
	}
	l := newLogger(&bytes.Buffer{}, log.InfoLevel)
	if got := loggerFromContext(withLogger(context.Background(), l)); got != l {
		t.Errorf("loggerFromContext = %p, want %p", got, l)
	}
}
