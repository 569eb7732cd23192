package core

import (
	"fmt"
	"math"
	"sort"
)

// Ranker ranks stored memories against a query embedding.
//
// The memories slice is the full working set in insertion order (oldest
// first); implementations must return a deterministic ordering with ties
// resolved by that base order. An implementation backed by an approximate
// nearest-neighbor structure can be substituted without changing callers.
type Ranker interface {
	Rank(query []float64, memories []*Memory, limit int) ([]*Memory, error)
}

// LinearRanker scores every stored memory with cosine similarity.
//
// Cost is O(n*d) per query (n = memory count, d = embedding dimension),
// which is adequate at expected memory-store scale.
type LinearRanker struct{}

// Rank computes the full descending ranking and returns the top limit
// entries. A limit larger than the store returns the whole store.
//
// Returns ErrDegenerateVector if the query or any stored embedding has
// zero magnitude.
func (LinearRanker) Rank(query []float64, memories []*Memory, limit int) ([]*Memory, error) {
	if magnitude(query) == 0 {
		return nil, NewMemoryError("Rank", ErrDegenerateVector)
	}

	ranked := make([]*Memory, len(memories))
	copy(ranked, memories)

	for _, m := range ranked {
		score, err := Cosine(query, m.Embedding)
		if err != nil {
			return nil, NewMemoryIDError("Rank", m.Experience.ID, err)
		}
		m.Score = score
	}

	// Stable sort over insertion-ordered input keeps ties in insertion order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if limit >= 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}

	return ranked, nil
}

// Cosine returns the cosine similarity dot(a,b) / (|a|*|b|).
//
// Returns ErrDegenerateVector when either vector has zero magnitude and
// ErrInvalidInput when the dimensions differ; it never silently yields NaN.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: embedding dimensions differ (%d vs %d)", ErrInvalidInput, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, ErrDegenerateVector
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

func magnitude(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
