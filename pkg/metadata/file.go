package metadata

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is a reference to a plugin or other installed file, optionally
// gated by a condition. Display, when set, replaces the path in any
// message shown about the reference.
type File struct {
	Name      string `json:"name"`                // Path relative to the game's data directory.
	Display   string `json:"display,omitempty"`   // Optional display name.
	Condition string `json:"condition,omitempty"` // Optional condition gating the reference.
}

// key identifies a file reference for set union. References to the same
// path are the same reference regardless of display name or condition.
func (f File) key() string {
	return strings.ToLower(f.Name)
}

// UnmarshalYAML accepts the compact scalar form (just the path) and the
// mapping form with name, display and condition keys.
func (f *File) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var name string
		if err := value.Decode(&name); err != nil {
			return err
		}
		f.Name = name
	case yaml.MappingNode:
		var aux struct {
			Name      string `yaml:"name"`
			Display   string `yaml:"display"`
			Condition string `yaml:"condition"`
		}
		if err := value.Decode(&aux); err != nil {
			return err
		}
		f.Name = aux.Name
		f.Display = aux.Display
		f.Condition = aux.Condition
	default:
		return fmt.Errorf("line %d: %w: file must be a string or a mapping", value.Line, ErrMalformed)
	}
	if f.Name == "" {
		return fmt.Errorf("line %d: %w: file name must not be empty", value.Line, ErrMalformed)
	}
	return nil
}

// MarshalYAML emits the compact scalar form when only the name is set.
func (f File) MarshalYAML() (any, error) {
	if f.Display == "" && f.Condition == "" {
		return f.Name, nil
	}
	return struct {
		Name      string `yaml:"name"`
		Display   string `yaml:"display,omitempty"`
		Condition string `yaml:"condition,omitempty"`
	}{f.Name, f.Display, f.Condition}, nil
}

// mergeFiles unions two reference sequences by path, keeping base order
// and base entries on collision.
func mergeFiles(base, extra []File) []File {
	seen := make(map[string]bool, len(base))
	for _, f := range base {
		seen[f.key()] = true
	}
	for _, f := range extra {
		if seen[f.key()] {
			continue
		}
		seen[f.key()] = true
		base = append(base, f)
	}
	return base
}
