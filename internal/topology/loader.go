package topology

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// graphFile is the on-disk shape of a resource graph dataset.
type graphFile struct {
	Resources []Node `yaml:"resources"`
	Edges     []Edge `yaml:"edges"`
}

// LoadFile reads a resource graph dataset from a YAML file. A load failure
// is fatal to startup: the evaluators cannot run without their baseline
// graph.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resource graph %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a resource graph dataset from YAML bytes.
func Parse(data []byte) (*Snapshot, error) {
	var file graphFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse resource graph: %w", err)
	}
	for i, n := range file.Resources {
		if n.Name == "" {
			return nil, fmt.Errorf("resource graph: resource %d has no name", i)
		}
	}
	for i, e := range file.Edges {
		if e.From == "" || e.To == "" {
			return nil, fmt.Errorf("resource graph: edge %d missing endpoint", i)
		}
	}
	return NewSnapshot(file.Resources, file.Edges), nil
}
