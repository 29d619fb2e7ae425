package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelInfo, Format: "json", Writer: &buf})

	log.Info("refresh complete", "book_id", "book-1")

	assert.Contains(t, buf.String(), `"msg":"refresh complete"`)
	assert.Contains(t, buf.String(), `"book_id":"book-1"`)
	assert.Contains(t, buf.String(), `"level":"INFO"`)
}

func TestNew_ProductionDefaultsToJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Environment: "production", Writer: &buf})

	log.Info("hello")

	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestNew_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Environment: "development", Level: slog.LevelDebug, Writer: &buf})

	log.Component("aggregates").Debug("recomputed", "review_count", 3, "note", "two words")

	out := buf.String()
	assert.Contains(t, out, "DBG")
	assert.Contains(t, out, "recomputed")
	assert.Contains(t, out, "component=aggregates")
	assert.Contains(t, out, "review_count=3")
	assert.Contains(t, out, `note="two words"`)
}

func TestConsoleHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelWarn, Writer: &buf})

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "WRN")
}

func TestConsoleHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf})

	log.WithGroup("ranking").Info("computed", "entries", 2)

	assert.Contains(t, buf.String(), "ranking.entries=2")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}
