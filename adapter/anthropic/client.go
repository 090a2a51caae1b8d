package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/rs/zerolog"

	"github.com/skosovsky/manifold"
	"github.com/skosovsky/manifold/adapter"
)

// Wire constants.
const (
	APIVersion     = "2023-06-01"
	DefaultBaseURL = "https://api.anthropic.com/"
	messagesPath   = "v1/messages"
)

// Client implements adapter.Provider. The header set (API key, version, base URL) is
// held behind an atomic pointer and replaced wholesale; each request reads it once.
type Client struct {
	sdk        atomic.Pointer[anthropic.Client]
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API base URL. Default is DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient sets the HTTP client. If hc is nil, the SDK default is used.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger for skipped stream events. Default discards.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a Client authenticated with apiKey.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{baseURL: DefaultBaseURL, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	c.UpdateAPIKey(apiKey)
	return c
}

// UpdateAPIKey regenerates the outbound headers with a new key.
// Requests already in flight keep the headers they started with.
func (c *Client) UpdateAPIKey(apiKey string) {
	sdk := anthropic.NewClient(c.headers(apiKey)...)
	c.sdk.Store(&sdk)
}

func (c *Client) headers(apiKey string) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithBaseURL(c.baseURL),
		option.WithAPIKey(apiKey),
		option.WithHeader("anthropic-version", APIVersion),
		option.WithHeader("content-type", "application/json"),
		option.WithMaxRetries(0),
	}
	if c.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(c.httpClient))
	}
	return opts
}

// Complete sends req without streaming and returns the first text block, or "" when the
// response has no text content.
func (c *Client) Complete(ctx context.Context, req *adapter.Request) (string, error) {
	params, err := Translate(req)
	if err != nil {
		return "", err
	}
	msg, err := c.sdk.Load().Messages.New(ctx, *params)
	if err != nil {
		return "", providerError(err)
	}
	for _, b := range msg.Content {
		if b.Type == "text" {
			return b.Text, nil
		}
	}
	return "", nil
}

// Stream sends req with "stream": true and returns the open event stream.
// A non-2xx status is returned as *manifold.ProviderError before any fragment is read.
func (c *Client) Stream(ctx context.Context, req *adapter.Request) (adapter.Stream, error) {
	params, err := Translate(req)
	if err != nil {
		return nil, err
	}
	var raw *http.Response
	err = c.sdk.Load().Post(ctx, messagesPath, *params, &raw, option.WithJSONSet("stream", true))
	if err != nil {
		return nil, providerError(err)
	}
	dec := ssestream.NewDecoder(raw)
	if dec == nil {
		return nil, errors.New("anthropic: stream response has no body")
	}
	return newStream(dec, c.logger), nil
}

// providerError maps SDK status errors to *manifold.ProviderError; transport errors are wrapped as-is.
func providerError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &manifold.ProviderError{Status: apiErr.StatusCode, Body: apiErr.RawJSON()}
	}
	return fmt.Errorf("anthropic: request failed: %w", err)
}

var _ adapter.Provider = (*Client)(nil)
