package adapter

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/skosovsky/manifold"
	"github.com/skosovsky/manifold/normalize"
)

// Request is one normalized, provider-neutral call. Both the unary and the streaming
// path receive the same Request.
type Request struct {
	Model    string
	System   string // empty means no system instruction
	Messages []normalize.Message
	Options  manifold.Options
}

// Provider executes a Request against a remote model API.
type Provider interface {
	// Complete performs one request/response exchange and returns the first text block ("" if none).
	Complete(ctx context.Context, req *Request) (string, error)
	// Stream opens a streaming response. Errors at open time (including non-2xx status) are returned here.
	Stream(ctx context.Context, req *Request) (Stream, error)
}

// Stream is a finite, forward-only sequence of text fragments. It is not restartable.
type Stream interface {
	// Fragments yields text in arrival order. Stopping the range loop releases the connection.
	Fragments() iter.Seq[string]
	// Err returns the transport error that ended Fragments early, if any.
	Err() error
	// Close releases the connection. Safe to call more than once.
	Close() error
}

// Sentinel errors for adapter implementations. Callers should use errors.Is.
var (
	ErrNilRequest      = errors.New("adapter: request must not be nil")
	ErrUnsupportedPart = errors.New("adapter: unsupported content part for this provider")
)

// Collect drains s and returns the concatenated text.
func Collect(s Stream) (string, error) {
	defer func() { _ = s.Close() }()
	var b strings.Builder
	for f := range s.Fragments() {
		b.WriteString(f)
	}
	return b.String(), s.Err()
}
