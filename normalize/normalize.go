package normalize

import (
	"fmt"
	"strings"

	"github.com/skosovsky/manifold"
	"github.com/skosovsky/manifold/catalog"
)

// Provider limits and caching threshold.
const (
	DefaultMaxImages           = 5
	DefaultMaxImageBytes int64 = 100 << 20
	// CacheMinTokens is the token count at which a text block becomes cacheable.
	CacheMinTokens = 1024
)

const dataImagePrefix = "data:image"

// Limits bound the images of one request. Count is inclusive (MaxImages allowed);
// size is exclusive (a total estimate of exactly MaxTotalBytes is allowed).
type Limits struct {
	MaxImages     int
	MaxTotalBytes int64
}

// DefaultLimits returns the provider limits: 5 images, 100 MiB.
func DefaultLimits() Limits {
	return Limits{MaxImages: DefaultMaxImages, MaxTotalBytes: DefaultMaxImageBytes}
}

// Normalizer converts chat messages for one target model per call. Safe for concurrent use
// when its TokenCounter is.
type Normalizer struct {
	counter manifold.TokenCounter
	catalog *catalog.Catalog
	limits  Limits
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithTokenCounter sets the counter used for the cache threshold. Default is manifold.NewTiktokenCounter().
func WithTokenCounter(tc manifold.TokenCounter) Option {
	return func(n *Normalizer) {
		if tc != nil {
			n.counter = tc
		}
	}
}

// WithCatalog sets the model table consulted for caching support. Default is catalog.Default().
func WithCatalog(c *catalog.Catalog) Option {
	return func(n *Normalizer) {
		if c != nil {
			n.catalog = c
		}
	}
}

// WithLimits overrides the image limits.
func WithLimits(l Limits) Option {
	return func(n *Normalizer) { n.limits = l }
}

// New returns a Normalizer with default counter, catalog and limits.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{limits: DefaultLimits()}
	for _, opt := range opts {
		opt(n)
	}
	if n.counter == nil {
		n.counter = manifold.NewTiktokenCounter()
	}
	if n.catalog == nil {
		n.catalog = catalog.Default()
	}
	return n
}

// imageBudget tracks images seen in one call.
type imageBudget struct {
	limits    Limits
	count     int
	base64Len int64
}

func (b *imageBudget) add(src ImageSource) error {
	if b.count >= b.limits.MaxImages {
		return &manifold.ImageLimitError{Kind: manifold.LimitImageCount, Limit: int64(b.limits.MaxImages), Actual: int64(b.count + 1)}
	}
	b.count++
	if s, ok := src.(Base64Source); ok {
		b.base64Len += int64(len(s.Data))
	}
	// Compare len*3/4 > max without losing the fraction.
	if b.base64Len*3 > b.limits.MaxTotalBytes*4 {
		return &manifold.ImageLimitError{Kind: manifold.LimitImageSize, Limit: b.limits.MaxTotalBytes, Actual: b.base64Len * 3 / 4}
	}
	return nil
}

// Normalize splits out system text and converts the remaining messages for model.
// system is "" when there is no system message. On error no messages are returned.
func (n *Normalizer) Normalize(messages []manifold.ChatMessage, model string) (system string, out []Message, err error) {
	cacheable := n.catalog.SupportsCaching(model)
	budget := &imageBudget{limits: n.limits}
	var systemTexts []string
	out = make([]Message, 0, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case manifold.RoleSystem:
			if t := contentOf(msg).Text(); t != "" {
				systemTexts = append(systemTexts, t)
			}
		case manifold.RoleUser, manifold.RoleAssistant:
			parts, err := n.parts(contentOf(msg), cacheable, budget)
			if err != nil {
				return "", nil, fmt.Errorf("message %d: %w", i, err)
			}
			out = append(out, Message{Role: msg.Role, Parts: parts})
		default:
			return "", nil, fmt.Errorf("message %d: %w: %q", i, manifold.ErrUnsupportedRole, msg.Role)
		}
	}
	return strings.Join(systemTexts, "\n\n"), out, nil
}

func contentOf(msg manifold.ChatMessage) manifold.Content {
	if msg.Content == nil {
		return manifold.TextContent("")
	}
	return msg.Content
}

func (n *Normalizer) parts(c manifold.Content, cacheable bool, budget *imageBudget) ([]Part, error) {
	switch x := c.(type) {
	case manifold.TextContent:
		t, err := n.text(string(x), cacheable)
		if err != nil {
			return nil, err
		}
		return []Part{t}, nil
	case manifold.PartsContent:
		out := make([]Part, 0, len(x))
		for _, p := range x {
			switch part := p.(type) {
			case manifold.TextPart:
				t, err := n.text(part.Text, cacheable)
				if err != nil {
					return nil, err
				}
				out = append(out, t)
			case manifold.ImagePart:
				src, err := ParseImageURL(part.URL)
				if err != nil {
					return nil, err
				}
				if err := budget.add(src); err != nil {
					return nil, err
				}
				out = append(out, Image{Source: src})
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: content type %T", manifold.ErrInvalidMessage, c)
	}
}

func (n *Normalizer) text(s string, cacheable bool) (Text, error) {
	if !cacheable {
		return Text{Text: s}, nil
	}
	tokens, err := n.counter.Count(s)
	if err != nil {
		return Text{}, fmt.Errorf("count tokens: %w", err)
	}
	return Text{Text: s, Cacheable: tokens >= CacheMinTokens}, nil
}

// ParseImageURL classifies an image reference. data:image URIs become a Base64Source
// with the media type from the URI header; anything else is a URLSource.
func ParseImageURL(u string) (ImageSource, error) {
	if !strings.HasPrefix(u, dataImagePrefix) {
		return URLSource{URL: u}, nil
	}
	header, payload, ok := strings.Cut(u, ",")
	if !ok {
		return nil, fmt.Errorf("%w: data URI has no payload", manifold.ErrInvalidImage)
	}
	mediaType := strings.TrimPrefix(header, "data:")
	mediaType, _, _ = strings.Cut(mediaType, ";")
	return Base64Source{MediaType: mediaType, Data: payload}, nil
}
