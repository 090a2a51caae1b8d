// Package anthropic implements adapter.Provider for the Anthropic Messages API.
//
// Translate maps normalized messages to *anthropic.MessageNewParams: cacheable text
// carries cache_control {"type":"ephemeral"}, images become base64 or url sources.
// Client sends them with the anthropic-version, content-type and x-api-key headers;
// the header set is rebuilt as a whole by UpdateAPIKey. Requests are never retried.
//
// Streaming reads the server-sent event stream with the SDK's ssestream decoder and
// yields content_block_start and content_block_delta text until message_stop.
// Events that fail to parse are logged and skipped.
package anthropic
