// Package manifold holds the shared types of the Anthropic manifold pipeline:
// chat messages as received from the host, request options, token counting and errors.
//
// The normalize package turns messages into provider-neutral form, adapter/anthropic talks
// to the Messages API, and pipeline ties them together behind the host-facing Pipe call.
package manifold
