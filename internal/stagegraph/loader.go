package stagegraph

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse decodes a stage graph from YAML bytes. Unknown fields are rejected.
func Parse(data []byte) (*Graph, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("stagegraph: definition payload is empty")
	}
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("stagegraph: decode definition: %w", err)
	}
	return New(def)
}

// LoadFile loads a stage graph from path.
func LoadFile(path string) (*Graph, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("stagegraph: read %s: %w", path, err)
	}
	g, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("stagegraph: %s: %w", path, err)
	}
	return g, nil
}

// Marshal encodes g as YAML, suitable for LoadFile.
func Marshal(g *Graph) ([]byte, error) {
	return yaml.Marshal(g.Definition())
}
