package normalize

import "github.com/skosovsky/manifold"

// Message is a normalized chat message: a user or assistant role with ordered content blocks.
type Message struct {
	Role  manifold.Role
	Parts []Part
}

// Part is a sealed interface for normalized content blocks: Text or Image.
type Part interface {
	isPart()
}

// Text is a text block. Cacheable marks it for provider-side prompt caching.
type Text struct {
	Text      string
	Cacheable bool
}

func (Text) isPart() {}

// Image is an image block.
type Image struct {
	Source ImageSource
}

func (Image) isPart() {}

// ImageSource is a sealed interface: Base64Source or URLSource.
type ImageSource interface {
	isImageSource()
}

// Base64Source is an inline image decoded from a data URI.
type Base64Source struct {
	MediaType string // e.g. "image/png"
	Data      string // base64 payload, not decoded
}

func (Base64Source) isImageSource() {}

// URLSource is an image the provider fetches itself.
type URLSource struct {
	URL string
}

func (URLSource) isImageSource() {}
