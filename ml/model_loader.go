package ml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// LoadPipeline reads and validates a pipeline artifact from path.
func LoadPipeline(path string) (*TreePipeline, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline artifact: %w", err)
	}
	return ParsePipeline(payload)
}

func ParsePipeline(payload []byte) (*TreePipeline, error) {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()

	var artifact Artifact
	if err := decoder.Decode(&artifact); err != nil {
		return nil, fmt.Errorf("decode pipeline artifact: %w", err)
	}
	pipeline, err := NewTreePipeline(artifact)
	if err != nil {
		return nil, fmt.Errorf("invalid pipeline artifact: %w", err)
	}
	return pipeline, nil
}
