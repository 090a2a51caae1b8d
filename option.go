package manifold

import "github.com/skosovsky/manifold/internal/cast"

// Request defaults applied when the host body does not set a key.
const (
	DefaultMaxTokens   int64   = 4096
	DefaultTemperature float64 = 0.8
	DefaultTopK        int64   = 40
	DefaultTopP        float64 = 0.9
)

// Options are the sampling and dispatch settings of one request.
type Options struct {
	MaxTokens   int64    // "max_tokens", default 4096
	Temperature float64  // "temperature", default 0.8
	TopK        int64    // "top_k", default 40
	TopP        float64  // "top_p", default 0.9
	Stop        []string // "stop", sent as stop_sequences; default empty
	Stream      bool     // "stream", selects the streaming path; default false
}

// DefaultOptions returns Options with every field at its default.
func DefaultOptions() Options {
	return Options{
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		TopK:        DefaultTopK,
		TopP:        DefaultTopP,
		Stop:        []string{},
	}
}

// OptionsFromBody reads well-known keys from a host request body.
// Keys that are absent or of the wrong type keep their default; all other keys are never read.
func OptionsFromBody(body map[string]any) Options {
	out := DefaultOptions()
	if body == nil {
		return out
	}
	if i, ok := cast.ToInt64(body["max_tokens"]); ok {
		out.MaxTokens = i
	}
	if f, ok := cast.ToFloat64(body["temperature"]); ok {
		out.Temperature = f
	}
	if i, ok := cast.ToInt64(body["top_k"]); ok {
		out.TopK = i
	}
	if f, ok := cast.ToFloat64(body["top_p"]); ok {
		out.TopP = f
	}
	if ss, ok := cast.ToStringSlice(body["stop"]); ok {
		out.Stop = ss
	}
	if b, ok := cast.ToBool(body["stream"]); ok {
		out.Stream = b
	}
	return out
}
