package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) Lookup {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	t.Parallel()
	v := Default()
	assert.Equal(t, DefaultAPIKey, v.AnthropicAPIKey)
	assert.Empty(t, v.BaseURL)
	assert.Equal(t, "info", v.LogLevel)
	assert.False(t, v.LogPretty)
}

func TestFromLookup(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		env  map[string]string
		want Valves
	}{
		{name: "empty", env: nil, want: Default()},
		{
			name: "all set",
			env: map[string]string{
				EnvAPIKey:    " sk-1 ",
				EnvBaseURL:   "http://localhost:9000/",
				EnvLogLevel:  "debug",
				EnvLogPretty: "TRUE",
			},
			want: Valves{AnthropicAPIKey: "sk-1", BaseURL: "http://localhost:9000/", LogLevel: "debug", LogPretty: true},
		},
		{
			name: "blank key keeps placeholder",
			env:  map[string]string{EnvAPIKey: "  ", EnvLogPretty: "nope"},
			want: Default(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FromLookup(mapLookup(tt.env)))
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("ANTHROPIC_API_KEY=sk-file\nMANIFOLD_LOG_LEVEL=warn\n"), 0o600))
	t.Setenv(EnvAPIKey, "")
	require.NoError(t, os.Unsetenv(EnvAPIKey))
	t.Setenv(EnvLogLevel, "error")

	v, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-file", v.AnthropicAPIKey)
	assert.Equal(t, "error", v.LogLevel, "process environment wins over the file")
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}
