package pipeline

import (
	"iter"
	"strings"

	"github.com/rs/zerolog"

	"github.com/skosovsky/manifold/adapter"
)

// ErrorPrefix starts every text produced from a failure.
const ErrorPrefix = "Error: "

// Result is the answer to one Pipe call: a complete text or a lazy fragment stream.
type Result struct {
	text   string
	stream adapter.Stream
	logger zerolog.Logger
	failed bool
}

// IsStream reports whether the result was produced on the streaming path.
func (r *Result) IsStream() bool { return r.stream != nil }

// Text returns the full text. For a stream it drains the remaining fragments.
func (r *Result) Text() string {
	if r.stream == nil {
		return r.text
	}
	var b strings.Builder
	for f := range r.Fragments() {
		b.WriteString(f)
	}
	return b.String()
}

// Fragments yields the text in arrival order. A non-streaming result yields its text once.
// A stream that fails after opening ends with one "Error: ..." fragment.
func (r *Result) Fragments() iter.Seq[string] {
	return func(yield func(string) bool) {
		if r.stream == nil {
			yield(r.text)
			return
		}
		for f := range r.stream.Fragments() {
			if !yield(f) {
				return
			}
		}
		if err := r.stream.Err(); err != nil && !r.failed {
			r.failed = true
			r.logger.Error().Err(err).Msg("stream failed")
			yield(errorText(err))
		}
	}
}

// Close releases the stream connection, if any.
func (r *Result) Close() error {
	if r.stream == nil {
		return nil
	}
	return r.stream.Close()
}
