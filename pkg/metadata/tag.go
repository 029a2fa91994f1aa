package metadata

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tag is a single Bash Tag directive: a suggestion to add or remove the
// named tag, optionally gated by a condition.
type Tag struct {
	Name      string `json:"name"`                // Tag name, without the removal prefix.
	Add       bool   `json:"add"`                 // True for an addition, false for a removal.
	Condition string `json:"condition,omitempty"` // Optional condition gating the suggestion.
}

// directive returns the name with the removal prefix applied.
func (t Tag) directive() string {
	if t.Add {
		return t.Name
	}
	return "-" + t.Name
}

// key identifies a directive for set union. Two directives are the same
// only if name, sense and condition all match.
func (t Tag) key() string {
	return t.directive() + "\x00" + t.Condition
}

// UnmarshalYAML accepts the compact scalar form ("Relev" adds, "-Relev"
// removes) and the mapping form with name and condition keys.
func (t *Tag) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var name string
		if err := value.Decode(&name); err != nil {
			return err
		}
		t.setDirective(name, "")
	case yaml.MappingNode:
		var aux struct {
			Name      string `yaml:"name"`
			Condition string `yaml:"condition"`
		}
		if err := value.Decode(&aux); err != nil {
			return err
		}
		t.setDirective(aux.Name, aux.Condition)
	default:
		return fmt.Errorf("line %d: %w: tag must be a string or a mapping", value.Line, ErrMalformed)
	}
	if t.Name == "" {
		return fmt.Errorf("line %d: %w: tag name must not be empty", value.Line, ErrMalformed)
	}
	return nil
}

func (t *Tag) setDirective(name, condition string) {
	t.Add = !strings.HasPrefix(name, "-")
	t.Name = strings.TrimPrefix(name, "-")
	t.Condition = condition
}

// MarshalYAML emits the compact scalar form when there is no condition.
func (t Tag) MarshalYAML() (any, error) {
	if t.Condition == "" {
		return t.directive(), nil
	}
	return struct {
		Name      string `yaml:"name"`
		Condition string `yaml:"condition"`
	}{t.directive(), t.Condition}, nil
}

// mergeTags unions two directive sequences, keeping base order and
// appending only directives not already present.
func mergeTags(base, extra []Tag) []Tag {
	seen := make(map[string]bool, len(base))
	for _, t := range base {
		seen[t.key()] = true
	}
	for _, t := range extra {
		if seen[t.key()] {
			continue
		}
		seen[t.key()] = true
		base = append(base, t)
	}
	return base
}
