// Package core provides the Engram memory system: episodic experience
// records, the in-process retrieval index, and the orchestrator that ties
// them to an embedding provider and a persistence backend.
package core

import "time"

// Experience is a single event the agent observed or performed.
//
// An Experience is created exactly once by Record and is immutable
// afterward, with one exception: Relationships may be extended in place
// via Connect.
type Experience struct {
	// ID is the unique identifier, generated at creation, never reassigned.
	ID string `json:"id"`

	// Timestamp is the creation time. Under the single-writer assumption
	// it is monotonically non-decreasing with insertion order.
	Timestamp time.Time `json:"timestamp"`

	// Type is a free-form category string (e.g., "perception", "action").
	Type string `json:"type"`

	// Content is the structured payload of the event.
	Content map[string]interface{} `json:"content"`

	// Metadata contains auxiliary structured information, semantically
	// separate from Content.
	Metadata map[string]interface{} `json:"metadata"`

	// Tags is an ordered tag list; insertion order is preserved and
	// duplicates are allowed.
	Tags []string `json:"tags"`

	// Importance is the caller-supplied importance weight (default 1.0,
	// no fixed range).
	Importance float64 `json:"importance"`

	// Context contains auxiliary situational information.
	Context map[string]interface{} `json:"context"`

	// Relationships maps a relationship name to an ordered sequence of
	// target experience ids; each target appears at most once per name.
	Relationships map[string][]string `json:"relationships"`
}

// Memory wraps an Experience with retrieval metadata.
type Memory struct {
	// Experience is the wrapped experience record.
	Experience *Experience `json:"experience"`

	// Embedding is the vector embedding, produced once at creation and
	// immutable thereafter.
	Embedding []float64 `json:"embedding"`

	// LastAccessed is updated on every recall that surfaces this memory.
	LastAccessed time.Time `json:"last_accessed"`

	// AccessCount is incremented once per surfacing event.
	AccessCount int `json:"access_count"`

	// EmotionalValence is the emotional significance (-1 to 1).
	// Reserved for analysis features; not mutated by recall paths.
	EmotionalValence float64 `json:"emotional_valence"`

	// Confidence is the confidence in the memory's accuracy.
	// Reserved for analysis features; not mutated by recall paths.
	Confidence float64 `json:"confidence"`

	// Score is the similarity score assigned by the most recent
	// similarity ranking. It is transient and not persisted.
	Score float64 `json:"score,omitempty"`
}

// Analysis is the structured result of analyzing a single experience.
type Analysis struct {
	// Importance is the suggested importance weight.
	Importance float64 `json:"importance"`

	// EmotionalSignificance is the suggested emotional valence.
	EmotionalSignificance float64 `json:"emotional_significance"`

	// Relationships suggests relationship links to other knowledge.
	Relationships map[string][]string `json:"relationships"`
}

// Reflection is the structured result of synthesizing recent memories.
type Reflection struct {
	// Patterns are recurring themes identified across recent memories.
	Patterns []string `json:"patterns"`

	// Insights are conclusions drawn from the identified patterns.
	Insights []string `json:"insights"`

	// Actions are suggested follow-up actions.
	Actions []string `json:"actions"`
}
