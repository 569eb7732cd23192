// Package fallback wraps an embedding provider with a deterministic
// hash-seeded fallback.
//
// When the underlying provider fails, the wrapper derives a vector by
// seeding a pseudo-random generator from an FNV-64a hash of the input text.
// Identical failing input therefore always yields the identical vector:
// retries are reproducible, though the fallback vector carries no semantic
// meaning.
package fallback

import (
	"context"
	"hash/fnv"
	"math/rand"

	"github.com/engram-labs/engram-go/pkg/embedder"
)

// Provider wraps an inner embedding provider with the deterministic fallback.
type Provider struct {
	inner embedder.Provider
}

// New wraps the given provider.
func New(inner embedder.Provider) *Provider {
	return &Provider{inner: inner}
}

// Embed converts text to a vector, falling back deterministically when the
// underlying provider fails. It never returns an error.
func (p *Provider) Embed(ctx context.Context, text string) ([]float64, error) {
	result := p.EmbedWithResult(ctx, text)
	return result.Vector, nil
}

// EmbedWithResult is the named fallback path: it reports whether the vector
// came from the underlying provider or from the deterministic fallback, and
// why.
func (p *Provider) EmbedWithResult(ctx context.Context, text string) embedder.Result {
	vector, err := p.inner.Embed(ctx, text)
	if err != nil {
		return embedder.Result{
			Vector:   Derive(text, p.inner.Dimensions()),
			Fallback: true,
			Reason:   err,
		}
	}
	return embedder.Result{Vector: vector}
}

// Dimensions returns the dimension of the underlying provider.
func (p *Provider) Dimensions() int {
	return p.inner.Dimensions()
}

// Close closes the underlying provider.
func (p *Provider) Close() error {
	return p.inner.Close()
}

// Derive computes the deterministic fallback vector for the given text:
// dims standard-normal draws from a generator seeded with the FNV-64a hash
// of the text.
func Derive(text string, dims int) []float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))

	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vector := make([]float64, dims)
	for i := range vector {
		vector[i] = rng.NormFloat64()
	}
	return vector
}
