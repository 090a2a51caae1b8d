package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/skosovsky/manifold"
	"github.com/skosovsky/manifold/adapter"
	"github.com/skosovsky/manifold/internal/config"
	"github.com/skosovsky/manifold/normalize"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

type fakeStream struct {
	frags  []string
	err    error
	closed bool
}

func (s *fakeStream) Fragments() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, f := range s.frags {
			if !yield(f) {
				return
			}
		}
	}
}

func (s *fakeStream) Err() error   { return s.err }
func (s *fakeStream) Close() error { s.closed = true; return nil }

type fakeProvider struct {
	mu        sync.Mutex
	text      string
	stream    *fakeStream
	err       error
	last      *adapter.Request
	apiKey    string
	completes int
	streams   int
}

func (f *fakeProvider) Complete(_ context.Context, req *adapter.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completes++
	f.last = req
	return f.text, f.err
}

func (f *fakeProvider) Stream(_ context.Context, req *adapter.Request) (adapter.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streams++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

func (f *fakeProvider) UpdateAPIKey(k string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKey = k
}

func newPipeline(fp *fakeProvider) *Pipeline {
	return New(config.Default(), WithProvider(fp),
		WithNormalizer(normalize.New(normalize.WithTokenCounter(&manifold.CharFallbackCounter{}))))
}

func hello() []manifold.ChatMessage {
	return []manifold.ChatMessage{
		manifold.Text(manifold.RoleSystem, "Be brief."),
		manifold.Text(manifold.RoleUser, "Hi"),
	}
}

func TestNew_Identity(t *testing.T) {
	t.Parallel()
	p := newPipeline(&fakeProvider{})
	assert.Equal(t, "manifold", p.Type)
	assert.Equal(t, "anthropic", p.ID)
	assert.Equal(t, "anthropic/", p.Name)
}

func TestPipelines(t *testing.T) {
	t.Parallel()
	models := newPipeline(&fakeProvider{}).Pipelines()
	ids := make([]string, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"claude-3-7-sonnet-latest", "claude-sonnet-4-20250514", "claude-opus-4-20250514"}, ids)
}

func TestPipe_Complete(t *testing.T) {
	t.Parallel()
	fp := &fakeProvider{text: "Hello!"}
	res := newPipeline(fp).Pipe(context.Background(), "Hi", "claude-sonnet-4-20250514", hello(),
		map[string]any{"max_tokens": 100, "user": map[string]any{"id": "u"}, "chat_id": "c"})
	assert.False(t, res.IsStream())
	assert.Equal(t, "Hello!", res.Text())
	require.NoError(t, res.Close())

	require.NotNil(t, fp.last)
	assert.Equal(t, "Be brief.", fp.last.System)
	assert.Equal(t, int64(100), fp.last.Options.MaxTokens)
	assert.InDelta(t, 0.8, fp.last.Options.Temperature, 1e-9)
	require.Len(t, fp.last.Messages, 1)
	assert.Equal(t, 1, fp.completes)
	assert.Zero(t, fp.streams)
}

func TestPipe_CompleteFragmentsYieldOnce(t *testing.T) {
	t.Parallel()
	res := newPipeline(&fakeProvider{text: "x"}).Pipe(context.Background(), "", "m", hello(), nil)
	var got []string
	for f := range res.Fragments() {
		got = append(got, f)
	}
	assert.Equal(t, []string{"x"}, got)
}

func TestPipe_Stream(t *testing.T) {
	t.Parallel()
	fs := &fakeStream{frags: []string{"Hel", "lo"}}
	fp := &fakeProvider{stream: fs}
	res := newPipeline(fp).Pipe(context.Background(), "Hi", "m", hello(), map[string]any{"stream": true})
	require.True(t, res.IsStream())
	assert.Equal(t, "Hello", res.Text())
	assert.Equal(t, 1, fp.streams)
	assert.Zero(t, fp.completes)
	require.NoError(t, res.Close())
	assert.True(t, fs.closed)
}

func TestPipe_StreamFailsMidway(t *testing.T) {
	t.Parallel()
	fs := &fakeStream{frags: []string{"partial"}, err: errors.New("connection reset")}
	res := newPipeline(&fakeProvider{stream: fs}).Pipe(context.Background(), "", "m", hello(), map[string]any{"stream": true})
	var got []string
	for f := range res.Fragments() {
		got = append(got, f)
	}
	assert.Equal(t, []string{"partial", "Error: connection reset"}, got)
}

func TestPipe_Errors(t *testing.T) {
	t.Parallel()
	tooMany := make([]manifold.ContentPart, 6)
	for i := range tooMany {
		tooMany[i] = manifold.ImagePart{URL: "https://example.com/i.png"}
	}
	tests := []struct {
		name     string
		provider *fakeProvider
		messages []manifold.ChatMessage
		stream   bool
		want     string
	}{
		{
			name:     "provider status",
			provider: &fakeProvider{err: &manifold.ProviderError{Status: 401, Body: `{"error":"bad key"}`}},
			messages: hello(),
			want:     `Error: 401 - {"error":"bad key"}`,
		},
		{
			name:     "provider status on stream open",
			provider: &fakeProvider{err: &manifold.ProviderError{Status: 529, Body: "overloaded"}},
			messages: hello(),
			stream:   true,
			want:     "Error: 529 - overloaded",
		},
		{
			name:     "image count",
			provider: &fakeProvider{},
			messages: []manifold.ChatMessage{manifold.Parts(manifold.RoleUser, tooMany...)},
			want:     "Error: manifold: maximum of 5 images per API call exceeded",
		},
		{
			name:     "unsupported role",
			provider: &fakeProvider{},
			messages: []manifold.ChatMessage{manifold.Text("tool", "x")},
			want:     `Error: message 0: manifold: unsupported message role: "tool"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := newPipeline(tt.provider).Pipe(context.Background(), "", "m", tt.messages, map[string]any{"stream": tt.stream})
			assert.False(t, res.IsStream())
			assert.Equal(t, tt.want, res.Text())
		})
	}
}

func TestPipe_NormalizeErrorSkipsProvider(t *testing.T) {
	t.Parallel()
	fp := &fakeProvider{}
	res := newPipeline(fp).Pipe(context.Background(), "", "m",
		[]manifold.ChatMessage{manifold.Parts(manifold.RoleUser, manifold.ImagePart{URL: "data:image/png;base64"})}, nil)
	assert.True(t, strings.HasPrefix(res.Text(), ErrorPrefix))
	assert.Zero(t, fp.completes)
}

func TestOnValvesUpdated(t *testing.T) {
	t.Parallel()
	fp := &fakeProvider{}
	p := newPipeline(fp)
	v := config.Default()
	v.AnthropicAPIKey = "sk-new"
	p.OnValvesUpdated(v)
	assert.Equal(t, "sk-new", fp.apiKey)
	assert.Equal(t, "sk-new", p.Valves().AnthropicAPIKey)
}

func TestPipe_LogsCatalogModel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	p := New(config.Default(), WithProvider(&fakeProvider{text: "ok"}), WithLogger(zerolog.New(&buf)),
		WithNormalizer(normalize.New(normalize.WithTokenCounter(&manifold.CharFallbackCounter{}))))

	assert.Equal(t, "ok", p.Pipe(context.Background(), "", "claude-opus-4-20250514", hello(), nil).Text())
	assert.Contains(t, buf.String(), `"name":"claude-4-opus"`)
	assert.NotContains(t, buf.String(), "model not in catalog")

	buf.Reset()
	assert.Equal(t, "ok", p.Pipe(context.Background(), "", "claude-unknown", hello(), nil).Text())
	assert.Contains(t, buf.String(), "model not in catalog")
}

func TestLifecycleLogs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	p := New(config.Default(), WithProvider(&fakeProvider{}), WithLogger(zerolog.New(&buf)))
	require.NoError(t, p.OnStartup(context.Background()))
	require.NoError(t, p.OnShutdown(context.Background()))
	assert.Contains(t, buf.String(), "on_startup")
	assert.Contains(t, buf.String(), "on_shutdown")
}

// End to end through the real Anthropic client.
func TestPipe_HTTP(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get("x-api-key"))
		mu.Unlock()
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), `"stream":true`) {
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = io.WriteString(w, "event: content_block_start\n"+
				`data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":"Hello"}}`+"\n\n"+
				"event: content_block_delta\n"+
				`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" world"}}`+"\n\n"+
				"event: message_stop\n"+`data: {"type":"message_stop"}`+"\n\n")
			return
		}
		if r.Header.Get("x-api-key") != "sk-good" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"m","type":"message","role":"assistant","model":"x","content":[{"type":"text","text":"Hi"}],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`)
	}))
	t.Cleanup(srv.Close)

	v := config.Default()
	v.BaseURL = srv.URL
	p := New(v)

	res := p.Pipe(context.Background(), "Hi", "claude-sonnet-4-20250514", hello(), nil)
	assert.True(t, strings.HasPrefix(res.Text(), "Error: 401 - "), res.Text())

	v.AnthropicAPIKey = "sk-good"
	p.OnValvesUpdated(v)
	res = p.Pipe(context.Background(), "Hi", "claude-sonnet-4-20250514", hello(), nil)
	assert.Equal(t, "Hi", res.Text())

	res = p.Pipe(context.Background(), "Hi", "claude-sonnet-4-20250514", hello(), map[string]any{"stream": true})
	require.True(t, res.IsStream())
	assert.Equal(t, "Hello world", res.Text())
	require.NoError(t, res.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{config.DefaultAPIKey, "sk-good", "sk-good"}, keys)
}
