package core

import (
	"encoding/json"
	"fmt"
)

// canonicalPayload fixes the field order of the serialization handed to the
// embedding provider. Struct fields marshal in declaration order and map
// keys marshal sorted, so the same experience always yields the same text.
type canonicalPayload struct {
	Type     string                 `json:"type"`
	Content  map[string]interface{} `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
	Tags     []string               `json:"tags"`
	Context  map[string]interface{} `json:"context"`
}

// CanonicalText returns the deterministic JSON serialization of an
// experience used as embedding input.
func CanonicalText(exp *Experience) (string, error) {
	data, err := json.Marshal(canonicalPayload{
		Type:     exp.Type,
		Content:  exp.Content,
		Metadata: exp.Metadata,
		Tags:     exp.Tags,
		Context:  exp.Context,
	})
	if err != nil {
		return "", fmt.Errorf("canonical serialization: %w", err)
	}
	return string(data), nil
}
