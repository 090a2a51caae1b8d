package anthropic

import (
	"bytes"
	"iter"
	"sync"

	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/skosovsky/manifold"
	"github.com/skosovsky/manifold/adapter"
)

// eventType is the "type" field of a stream event payload.
type eventType string

// Event types acted on; every other type is ignored.
const (
	eventContentBlockStart eventType = "content_block_start"
	eventContentBlockDelta eventType = "content_block_delta"
	eventMessageStop       eventType = "message_stop"
	eventError             eventType = "error"
)

// Stream is an open server-sent event stream. It implements adapter.Stream.
type Stream struct {
	dec       ssestream.Decoder
	logger    zerolog.Logger
	started   bool
	err       error
	closeOnce sync.Once
	closeErr  error
}

func newStream(dec ssestream.Decoder, logger zerolog.Logger) *Stream {
	return &Stream{dec: dec, logger: logger}
}

// Fragments yields text fragments as events arrive and ends at message_stop or end of body.
// A second call yields nothing. The connection is closed when the loop ends for any reason.
func (s *Stream) Fragments() iter.Seq[string] {
	return func(yield func(string) bool) {
		defer func() { _ = s.Close() }()
		if s.started {
			return
		}
		s.started = true
		for s.dec.Next() {
			text, stop := s.handle(s.dec.Event())
			if stop {
				return
			}
			if text != "" && !yield(text) {
				return
			}
		}
		s.err = s.dec.Err()
	}
}

// handle returns the fragment carried by ev and whether the stream has ended.
func (s *Stream) handle(ev ssestream.Event) (string, bool) {
	data := bytes.TrimSpace(ev.Data)
	if len(data) == 0 {
		return "", false
	}
	if !gjson.ValidBytes(data) {
		s.skip(ev, "payload is not valid JSON")
		return "", false
	}
	payload := gjson.ParseBytes(data)
	typ := eventType(payload.Get("type").String())
	if typ == "" {
		typ = eventType(ev.Type)
	}
	switch typ {
	case eventContentBlockStart:
		return s.text(ev, payload, "content_block.text"), false
	case eventContentBlockDelta:
		return s.text(ev, payload, "delta.text"), false
	case eventMessageStop:
		return "", true
	case eventError:
		s.logger.Warn().
			Str("error_type", payload.Get("error.type").String()).
			Str("message", payload.Get("error.message").String()).
			Msg("provider sent error event")
	}
	return "", false
}

func (s *Stream) text(ev ssestream.Event, payload gjson.Result, path string) string {
	t := payload.Get(path)
	if !t.Exists() {
		s.skip(ev, "missing "+path)
		return ""
	}
	return t.String()
}

func (s *Stream) skip(ev ssestream.Event, reason string) {
	s.logger.Warn().
		Err(manifold.ErrMalformedEvent).
		Str("event", ev.Type).
		Str("reason", reason).
		Bytes("data", ev.Data).
		Msg("skipping stream event")
}

// Err returns the decoder error that ended the stream, if any.
func (s *Stream) Err() error { return s.err }

// Close releases the underlying connection.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.dec.Close() })
	return s.closeErr
}

var _ adapter.Stream = (*Stream)(nil)
