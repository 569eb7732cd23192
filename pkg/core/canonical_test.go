package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engram "github.com/engram-labs/engram-go/pkg/core"
)

func TestCanonicalTextFieldOrder(t *testing.T) {
	exp := &engram.Experience{
		ID:   "ignored",
		Type: "perception",
		Content: map[string]interface{}{
			"what": "saw a door",
		},
		Metadata: map[string]interface{}{},
		Tags:     []string{"vision"},
		Context:  map[string]interface{}{},
	}

	text, err := engram.CanonicalText(exp)
	require.NoError(t, err)

	assert.Equal(t,
		`{"type":"perception","content":{"what":"saw a door"},"metadata":{},"tags":["vision"],"context":{}}`,
		text)
}

func TestCanonicalTextDeterministic(t *testing.T) {
	exp := &engram.Experience{
		Type: "action",
		Content: map[string]interface{}{
			"zebra": 1,
			"apple": 2,
			"mango": 3,
		},
		Metadata: map[string]interface{}{"b": true, "a": false},
		Tags:     []string{"x", "y"},
		Context:  map[string]interface{}{"c": "v"},
	}

	first, err := engram.CanonicalText(exp)
	require.NoError(t, err)

	// Map iteration order varies between runs; the serialization must not.
	for i := 0; i < 20; i++ {
		again, err := engram.CanonicalText(exp)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCanonicalTextExcludesVolatileFields(t *testing.T) {
	a := &engram.Experience{
		ID:      "one",
		Type:    "perception",
		Content: map[string]interface{}{"k": "v"},
	}
	b := &engram.Experience{
		ID:            "two",
		Type:          "perception",
		Content:       map[string]interface{}{"k": "v"},
		Relationships: map[string][]string{"causes": {"three"}},
	}

	ta, err := engram.CanonicalText(a)
	require.NoError(t, err)
	tb, err := engram.CanonicalText(b)
	require.NoError(t, err)

	// Id, timestamp, and relationships do not feed the embedding.
	assert.Equal(t, ta, tb)
}
