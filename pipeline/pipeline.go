package pipeline

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/skosovsky/manifold"
	"github.com/skosovsky/manifold/adapter"
	"github.com/skosovsky/manifold/adapter/anthropic"
	"github.com/skosovsky/manifold/catalog"
	"github.com/skosovsky/manifold/internal/config"
	"github.com/skosovsky/manifold/normalize"
)

// Host-visible identity of the pipeline.
const (
	Type = "manifold"
	ID   = "anthropic"
	Name = "anthropic/"
)

// keyUpdater is implemented by providers whose credentials can be swapped in place.
type keyUpdater interface {
	UpdateAPIKey(apiKey string)
}

// Pipeline dispatches chat requests to the provider. Safe for concurrent use.
type Pipeline struct {
	Type string
	ID   string
	Name string

	valves     atomic.Pointer[config.Valves]
	provider   adapter.Provider
	normalizer *normalize.Normalizer
	catalog    *catalog.Catalog
	logger     zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProvider replaces the Anthropic client.
func WithProvider(p adapter.Provider) Option {
	return func(pl *Pipeline) { pl.provider = p }
}

// WithNormalizer replaces the default normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(pl *Pipeline) { pl.normalizer = n }
}

// WithCatalog replaces the embedded model table for listing and caching decisions.
func WithCatalog(c *catalog.Catalog) Option {
	return func(pl *Pipeline) { pl.catalog = c }
}

// WithLogger sets the logger. Default discards.
func WithLogger(l zerolog.Logger) Option {
	return func(pl *Pipeline) { pl.logger = l }
}

// New builds a Pipeline from valves.
func New(valves config.Valves, opts ...Option) *Pipeline {
	p := &Pipeline{Type: Type, ID: ID, Name: Name, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	if p.catalog == nil {
		p.catalog = catalog.Default()
	}
	if p.normalizer == nil {
		p.normalizer = normalize.New(normalize.WithCatalog(p.catalog))
	}
	if p.provider == nil {
		p.provider = anthropic.New(valves.AnthropicAPIKey,
			anthropic.WithBaseURL(valves.BaseURL),
			anthropic.WithLogger(p.logger.With().Str("component", "anthropic").Logger()),
		)
	}
	p.valves.Store(&valves)
	return p
}

// Valves returns the current settings.
func (p *Pipeline) Valves() config.Valves {
	return *p.valves.Load()
}

// Pipelines lists the selectable models.
func (p *Pipeline) Pipelines() []catalog.Model {
	return p.catalog.Models()
}

// OnStartup is called by the host once before serving.
func (p *Pipeline) OnStartup(_ context.Context) error {
	p.logger.Info().Str("pipeline", p.ID).Msg("on_startup")
	return nil
}

// OnShutdown is called by the host once after serving.
func (p *Pipeline) OnShutdown(_ context.Context) error {
	p.logger.Info().Str("pipeline", p.ID).Msg("on_shutdown")
	return nil
}

// OnValvesUpdated stores new settings and regenerates the outbound headers.
// The base URL is fixed when the Pipeline is built.
func (p *Pipeline) OnValvesUpdated(valves config.Valves) {
	old := p.valves.Swap(&valves)
	if ku, ok := p.provider.(keyUpdater); ok {
		ku.UpdateAPIKey(valves.AnthropicAPIKey)
	}
	if old != nil && old.BaseURL != valves.BaseURL {
		p.logger.Warn().Str("base_url", valves.BaseURL).Msg("base URL change takes effect after restart")
	}
	p.logger.Info().Str("pipeline", p.ID).Msg("valves updated")
}

// Pipe answers one chat request. The user message argument is already the last entry of
// messages and is not read separately. body carries the sampling options; keys other than max_tokens,
// temperature, top_k, top_p, stop and stream are ignored.
// Model ids missing from the catalog are still sent, with a warning.
func (p *Pipeline) Pipe(ctx context.Context, _, modelID string, messages []manifold.ChatMessage, body map[string]any) *Result {
	opts := manifold.OptionsFromBody(body)
	log := p.logger.With().Str("model", modelID).Bool("stream", opts.Stream).Logger()
	if m, ok := p.catalog.Lookup(modelID); ok {
		log.Debug().Str("name", m.Name).Bool("caching", m.SupportsCaching).Msg("pipe")
	} else {
		log.Warn().Msg("model not in catalog")
	}

	system, msgs, err := p.normalizer.Normalize(messages, modelID)
	if err != nil {
		return p.fail(log, err)
	}
	req := &adapter.Request{Model: modelID, System: system, Messages: msgs, Options: opts}
	if opts.Stream {
		s, err := p.provider.Stream(ctx, req)
		if err != nil {
			return p.fail(log, err)
		}
		return &Result{stream: s, logger: log}
	}
	text, err := p.provider.Complete(ctx, req)
	if err != nil {
		return p.fail(log, err)
	}
	return &Result{text: text}
}

func (p *Pipeline) fail(log zerolog.Logger, err error) *Result {
	log.Error().Err(err).Msg("pipe failed")
	return &Result{text: errorText(err)}
}

// errorText renders err for the chat user. Typed errors are shown without wrapping context.
func errorText(err error) string {
	var pe *manifold.ProviderError
	if errors.As(err, &pe) {
		return ErrorPrefix + pe.Error()
	}
	var le *manifold.ImageLimitError
	if errors.As(err, &le) {
		return ErrorPrefix + le.Error()
	}
	return ErrorPrefix + err.Error()
}
