package manifold

import (
	"errors"
	"fmt"
)

// Sentinel errors for normalization and provider calls.
// All use prefix "manifold:" for identification. Callers should use errors.Is/errors.As.
var (
	ErrImageLimitExceeded = errors.New("manifold: image limit exceeded")
	ErrInvalidImage       = errors.New("manifold: image reference is malformed")
	ErrUnsupportedRole    = errors.New("manifold: unsupported message role")
	ErrInvalidMessage     = errors.New("manifold: chat message is malformed")
	ErrProvider           = errors.New("manifold: provider returned an error status")
	// ErrMalformedEvent marks a stream event that could not be parsed. It is logged, never returned.
	ErrMalformedEvent = errors.New("manifold: malformed stream event payload")
)

// Image limit kinds reported by ImageLimitError.
const (
	LimitImageCount = "count"
	LimitImageSize  = "size"
)

// ImageLimitError reports which per-request image limit was exceeded.
// Use errors.Is(err, ErrImageLimitExceeded) and errors.As(err, &limitErr) to inspect.
type ImageLimitError struct {
	Kind   string // LimitImageCount or LimitImageSize
	Limit  int64  // images for count, bytes for size
	Actual int64
}

// Error implements error.
func (e *ImageLimitError) Error() string {
	if e.Kind == LimitImageCount {
		return fmt.Sprintf("manifold: maximum of %d images per API call exceeded", e.Limit)
	}
	return fmt.Sprintf("manifold: total size of images exceeds %d MB limit (estimated %d bytes)", e.Limit>>20, e.Actual)
}

// Unwrap returns ErrImageLimitExceeded for errors.Is.
func (e *ImageLimitError) Unwrap() error { return ErrImageLimitExceeded }

// ProviderError is a non-success HTTP response from the provider.
type ProviderError struct {
	Status int
	Body   string
}

// Error implements error.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%d - %s", e.Status, e.Body)
}

// Unwrap returns ErrProvider for errors.Is.
func (e *ProviderError) Unwrap() error { return ErrProvider }

// Compile-time check that the typed errors implement error.
var (
	_ error = (*ImageLimitError)(nil)
	_ error = (*ProviderError)(nil)
)
