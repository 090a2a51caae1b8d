// Package config loads pipeline valves from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment keys.
const (
	EnvAPIKey    = "ANTHROPIC_API_KEY"
	EnvBaseURL   = "ANTHROPIC_BASE_URL"
	EnvLogLevel  = "MANIFOLD_LOG_LEVEL"
	EnvLogPretty = "MANIFOLD_LOG_PRETTY"
)

// DefaultAPIKey is the placeholder used when no key is configured.
const DefaultAPIKey = "your-api-key-here"

// DefaultEnvFile is read by LoadDefault when present.
const DefaultEnvFile = ".env"

// Valves are the user-editable settings of the pipeline.
type Valves struct {
	AnthropicAPIKey string
	// BaseURL is empty for the public API.
	BaseURL   string
	LogLevel  string
	LogPretty bool
}

// Default returns valves with the placeholder key.
func Default() Valves {
	return Valves{AnthropicAPIKey: DefaultAPIKey, LogLevel: "info"}
}

// Lookup reports the value of an environment key.
type Lookup func(key string) (string, bool)

// FromLookup builds valves from lookup, falling back to Default for unset keys.
func FromLookup(lookup Lookup) Valves {
	v := Default()
	if s := get(lookup, EnvAPIKey); s != "" {
		v.AnthropicAPIKey = s
	}
	v.BaseURL = get(lookup, EnvBaseURL)
	if s := get(lookup, EnvLogLevel); s != "" {
		v.LogLevel = s
	}
	v.LogPretty = parseBool(get(lookup, EnvLogPretty))
	return v
}

// Load reads path as a .env file and overlays the process environment, which wins.
// An empty path reads only the process environment.
func Load(path string) (Valves, error) {
	file := map[string]string{}
	if path != "" {
		var err error
		if file, err = godotenv.Read(path); err != nil {
			return Valves{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	return FromLookup(overlay(file)), nil
}

// LoadDefault is Load(DefaultEnvFile) that tolerates a missing file.
func LoadDefault() (Valves, error) {
	v, err := Load(DefaultEnvFile)
	if errors.Is(err, fs.ErrNotExist) {
		return Load("")
	}
	return v, err
}

func overlay(file map[string]string) Lookup {
	return func(key string) (string, bool) {
		if s, ok := os.LookupEnv(key); ok {
			return s, true
		}
		s, ok := file[key]
		return s, ok
	}
}

func get(lookup Lookup, key string) string {
	s, _ := lookup(key)
	return strings.TrimSpace(s)
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
