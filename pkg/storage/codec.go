package storage

import (
	"encoding/json"
	"fmt"
	"time"
)

// Row is the wire form shared by every SQL backend: structured fields
// are JSON text, timestamps are RFC3339Nano strings. Keeping the encoding in
// one place guarantees that a record written by one backend can be read back
// by another.
type Row struct {
	ID               string
	Timestamp        string
	Type             string
	Content          string
	Metadata         string
	Tags             string
	Importance       float64
	Context          string
	Relationships    string
	Embedding        string
	LastAccessed     string
	AccessCount      int
	EmotionalValence float64
	Confidence       float64
}

// EncodeRow converts a memory into its text-encoded row form.
func EncodeRow(m *Memory) (*Row, error) {
	content, err := marshalField("content", m.Content)
	if err != nil {
		return nil, err
	}
	metadata, err := marshalField("metadata", m.Metadata)
	if err != nil {
		return nil, err
	}
	tags, err := marshalField("tags", m.Tags)
	if err != nil {
		return nil, err
	}
	context, err := marshalField("context", m.Context)
	if err != nil {
		return nil, err
	}
	relationships, err := marshalField("relationships", m.Relationships)
	if err != nil {
		return nil, err
	}
	embedding, err := marshalField("embedding", m.Embedding)
	if err != nil {
		return nil, err
	}

	return &Row{
		ID:               m.ID,
		Timestamp:        m.Timestamp.Format(time.RFC3339Nano),
		Type:             m.Type,
		Content:          content,
		Metadata:         metadata,
		Tags:             tags,
		Importance:       m.Importance,
		Context:          context,
		Relationships:    relationships,
		Embedding:        embedding,
		LastAccessed:     m.LastAccessed.Format(time.RFC3339Nano),
		AccessCount:      m.AccessCount,
		EmotionalValence: m.EmotionalValence,
		Confidence:       m.Confidence,
	}, nil
}

// Decode converts a text-encoded row back into a memory.
func (r *Row) Decode() (*Memory, error) {
	timestamp, err := time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("decode timestamp: %w", err)
	}
	lastAccessed, err := time.Parse(time.RFC3339Nano, r.LastAccessed)
	if err != nil {
		return nil, fmt.Errorf("decode last_accessed: %w", err)
	}

	m := &Memory{
		ID:               r.ID,
		Timestamp:        timestamp,
		Type:             r.Type,
		Importance:       r.Importance,
		LastAccessed:     lastAccessed,
		AccessCount:      r.AccessCount,
		EmotionalValence: r.EmotionalValence,
		Confidence:       r.Confidence,
	}

	if err := unmarshalField("content", r.Content, &m.Content); err != nil {
		return nil, err
	}
	if err := unmarshalField("metadata", r.Metadata, &m.Metadata); err != nil {
		return nil, err
	}
	if err := unmarshalField("tags", r.Tags, &m.Tags); err != nil {
		return nil, err
	}
	if err := unmarshalField("context", r.Context, &m.Context); err != nil {
		return nil, err
	}
	if err := unmarshalField("relationships", r.Relationships, &m.Relationships); err != nil {
		return nil, err
	}
	if err := unmarshalField("embedding", r.Embedding, &m.Embedding); err != nil {
		return nil, err
	}

	return m, nil
}

func marshalField(name string, v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	return string(data), nil
}

func unmarshalField(name, data string, v interface{}) error {
	if data == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
