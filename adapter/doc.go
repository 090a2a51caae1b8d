// Package adapter defines the Provider interface that executes a normalized Request
// either as a single exchange or as a lazy stream of text fragments.
// Implementations live in provider-specific subpackages.
package adapter
