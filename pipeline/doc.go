// Package pipeline is the host-facing entry point of the Anthropic manifold.
//
// A Pipeline lists the available Claude models and answers chat requests. Pipe never returns
// a Go error: any failure is turned into a Result whose text starts with "Error: ".
package pipeline
