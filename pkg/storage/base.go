// Package storage provides interfaces and types for memory persistence backends.
//
// It defines the Store interface that all storage implementations must satisfy,
// along with the persisted memory record type.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates that the requested memory id is not present in the store.
//
// Touch and Get return this error rather than silently ignoring unknown ids.
var ErrNotFound = errors.New("memory not found")

// Memory is the persisted representation of an experience and its
// retrieval metadata.
//
// This type is defined in the storage package to avoid circular dependencies
// with the core package. Structured fields (Content, Metadata, Tags, Context,
// Relationships, Embedding) are serialized as JSON text by every backend so
// records stay portable across storage engines.
type Memory struct {
	// ID is the unique identifier of the memory.
	ID string

	// Timestamp is when the experience was recorded.
	Timestamp time.Time

	// Type is the experience category (e.g., "perception", "action").
	Type string

	// Content is the structured payload of the experience.
	Content map[string]interface{}

	// Metadata contains auxiliary structured information.
	Metadata map[string]interface{}

	// Tags is the ordered tag list; duplicates are allowed.
	Tags []string

	// Importance is the caller-supplied importance weight.
	Importance float64

	// Context contains auxiliary situational information.
	Context map[string]interface{}

	// Relationships maps a relationship name to target memory ids.
	Relationships map[string][]string

	// Embedding is the vector embedding for similarity search.
	Embedding []float64

	// LastAccessed is when the memory was last surfaced by a recall.
	LastAccessed time.Time

	// AccessCount is the number of times the memory was surfaced.
	AccessCount int

	// EmotionalValence is the emotional significance (-1 to 1).
	EmotionalValence float64

	// Confidence is the confidence in the memory's accuracy.
	Confidence float64
}

// Store defines the interface for memory persistence backends.
//
// All storage implementations (SQLite, PostgreSQL, MySQL) must implement
// this interface. Put is an atomic upsert keyed by id, and GetAll returns
// a complete, consistent snapshot of the store.
type Store interface {
	// Put inserts or replaces a memory, keyed by its id.
	Put(ctx context.Context, memory *Memory) error

	// Get retrieves a memory by id.
	//
	// Returns ErrNotFound if no memory with the given id exists.
	Get(ctx context.Context, id string) (*Memory, error)

	// GetAll returns every memory in the store.
	GetAll(ctx context.Context) ([]*Memory, error)

	// Touch records an access: it sets last_accessed to the given time
	// and increments access_count by one.
	//
	// Returns ErrNotFound if no memory with the given id exists.
	Touch(ctx context.Context, id string, at time.Time) error

	// Close closes the store and releases resources.
	Close() error
}
