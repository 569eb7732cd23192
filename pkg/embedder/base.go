// Package embedder provides interfaces for text embedding providers.
//
// It defines the Provider interface that all embedding implementations must
// satisfy, enabling text-to-vector conversion for similarity search.
package embedder

import "context"

// Provider defines the interface for embedding providers.
//
// All embedding implementations must produce vectors of a single fixed
// dimension per deployment, reported by Dimensions.
type Provider interface {
	// Embed converts a text string into a vector embedding.
	Embed(ctx context.Context, text string) ([]float64, error)

	// Dimensions returns the dimension of vectors produced by this provider.
	Dimensions() int

	// Close closes the provider and releases resources.
	Close() error
}

// Result is the explicit outcome of an embedding request.
//
// It distinguishes a vector produced by the real provider from one produced
// by the deterministic fallback, so the fallback path stays observable and
// testable instead of being hidden inside error handling.
type Result struct {
	// Vector is the embedding vector, always of the provider's dimension.
	Vector []float64

	// Fallback is true when the vector came from the deterministic
	// fallback rather than the underlying provider.
	Fallback bool

	// Reason is the provider failure that triggered the fallback,
	// nil when Fallback is false.
	Reason error
}
