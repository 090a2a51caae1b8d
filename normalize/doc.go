// Package normalize converts chat messages into the provider's content-block form.
//
// A leading system message is split out as plain text. Text blocks for caching-capable
// models are marked cacheable when they reach CacheMinTokens. Image references become
// inline base64 or URL sources, subject to per-request count and size limits; a violation
// aborts the whole call with manifold.ErrImageLimitExceeded.
package normalize
