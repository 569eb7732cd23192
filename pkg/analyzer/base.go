// Package analyzer provides interfaces for text-analysis providers.
//
// An analyzer turns a prompt about recorded experiences into a structured
// JSON response. It backs the higher-level Analyze and Reflect operations;
// its prompt engineering lives with the caller, not the provider.
package analyzer

import "context"

// Provider defines the interface for text-analysis providers.
type Provider interface {
	// Complete generates a completion for the given prompt.
	//
	// Callers that expect structured output include the desired JSON shape
	// in the prompt and decode the returned text themselves.
	Complete(ctx context.Context, prompt string) (string, error)

	// Close closes the provider and releases resources.
	Close() error
}
