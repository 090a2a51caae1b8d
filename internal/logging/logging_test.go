package logging

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	assert.Equal(t, InfoLevel, cfg.Level)
	assert.Equal(t, os.Stderr, cfg.Output)
	assert.False(t, cfg.Pretty)
	assert.Equal(t, time.RFC3339, cfg.TimeFormat)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want Level
	}{
		{"DEBUG", DebugLevel},
		{"  debug ", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"WARNING", WarnLevel},
		{"error", ErrorLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_JSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := New(Config{Level: WarnLevel, Output: &buf})
	l.Info().Msg("dropped")
	l.Warn().Str("model", "m").Msg("kept")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", gjson.GetBytes(lines[0], "message").String())
	assert.Equal(t, "m", gjson.GetBytes(lines[0], "model").String())
	assert.True(t, gjson.GetBytes(lines[0], "time").Exists())
}

func TestNew_Pretty(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := New(Config{Level: InfoLevel, Output: &buf, Pretty: true})
	l.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, gjson.Valid(buf.String()))
}
