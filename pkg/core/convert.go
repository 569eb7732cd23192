package core

import "github.com/engram-labs/engram-go/pkg/storage"

// toStorageMemory flattens a core memory into its persisted form.
func toStorageMemory(m *Memory) *storage.Memory {
	exp := m.Experience
	return &storage.Memory{
		ID:               exp.ID,
		Timestamp:        exp.Timestamp,
		Type:             exp.Type,
		Content:          exp.Content,
		Metadata:         exp.Metadata,
		Tags:             exp.Tags,
		Importance:       exp.Importance,
		Context:          exp.Context,
		Relationships:    exp.Relationships,
		Embedding:        m.Embedding,
		LastAccessed:     m.LastAccessed,
		AccessCount:      m.AccessCount,
		EmotionalValence: m.EmotionalValence,
		Confidence:       m.Confidence,
	}
}

// fromStorageMemory rebuilds a core memory from its persisted form.
func fromStorageMemory(sm *storage.Memory) *Memory {
	return &Memory{
		Experience: &Experience{
			ID:            sm.ID,
			Timestamp:     sm.Timestamp,
			Type:          sm.Type,
			Content:       sm.Content,
			Metadata:      sm.Metadata,
			Tags:          sm.Tags,
			Importance:    sm.Importance,
			Context:       sm.Context,
			Relationships: sm.Relationships,
		},
		Embedding:        sm.Embedding,
		LastAccessed:     sm.LastAccessed,
		AccessCount:      sm.AccessCount,
		EmotionalValence: sm.EmotionalValence,
		Confidence:       sm.Confidence,
	}
}
