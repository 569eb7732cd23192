package fallback_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engram-labs/engram-go/pkg/embedder/fallback"
)

type fakeProvider struct {
	vector []float64
	err    error
	dims   int
	calls  int
}

func (p *fakeProvider) Embed(_ context.Context, _ string) ([]float64, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.vector, nil
}

func (p *fakeProvider) Dimensions() int { return p.dims }
func (p *fakeProvider) Close() error    { return nil }

func TestDeriveDeterministic(t *testing.T) {
	first := fallback.Derive("the same text", 256)
	second := fallback.Derive("the same text", 256)

	require.Len(t, first, 256)
	assert.Equal(t, first, second)
}

func TestDeriveDistinguishesTexts(t *testing.T) {
	a := fallback.Derive("first text", 64)
	b := fallback.Derive("second text", 64)

	assert.NotEqual(t, a, b)
}

func TestDeriveNonZero(t *testing.T) {
	vector := fallback.Derive("", 32)

	var sum float64
	for _, x := range vector {
		sum += x * x
	}
	assert.Greater(t, sum, 0.0)
}

func TestEmbedPassthrough(t *testing.T) {
	inner := &fakeProvider{vector: []float64{0.1, 0.2, 0.3}, dims: 3}
	provider := fallback.New(inner)

	vector, err := provider.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vector)
	assert.Equal(t, 1, inner.calls)

	result := provider.EmbedWithResult(context.Background(), "hello")
	assert.False(t, result.Fallback)
	assert.NoError(t, result.Reason)
}

func TestEmbedFallsBackOnFailure(t *testing.T) {
	innerErr := errors.New("rate limited")
	inner := &fakeProvider{err: innerErr, dims: 16}
	provider := fallback.New(inner)

	vector, err := provider.Embed(context.Background(), "some text")
	require.NoError(t, err)
	require.Len(t, vector, 16)
	assert.Equal(t, fallback.Derive("some text", 16), vector)

	result := provider.EmbedWithResult(context.Background(), "some text")
	assert.True(t, result.Fallback)
	assert.ErrorIs(t, result.Reason, innerErr)
	assert.Equal(t, vector, result.Vector)
}

func TestDimensions(t *testing.T) {
	provider := fallback.New(&fakeProvider{dims: 1536})
	assert.Equal(t, 1536, provider.Dimensions())
}
