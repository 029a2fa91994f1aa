package metadata

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Location is a URL where the plugin can be obtained, with an optional
// human-readable name.
type Location struct {
	URL  string `json:"link"`
	Name string `json:"name,omitempty"`
}

// key identifies a location for set union.
func (l Location) key() string {
	return strings.ToLower(l.URL)
}

// UnmarshalYAML accepts the compact scalar form (just the URL) and the
// mapping form with link and name keys.
func (l *Location) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var url string
		if err := value.Decode(&url); err != nil {
			return err
		}
		l.URL = url
	case yaml.MappingNode:
		var aux struct {
			Link string `yaml:"link"`
			Name string `yaml:"name"`
		}
		if err := value.Decode(&aux); err != nil {
			return err
		}
		l.URL = aux.Link
		l.Name = aux.Name
	default:
		return fmt.Errorf("line %d: %w: url must be a string or a mapping", value.Line, ErrMalformed)
	}
	if l.URL == "" {
		return fmt.Errorf("line %d: %w: url must not be empty", value.Line, ErrMalformed)
	}
	return nil
}

// MarshalYAML emits the compact scalar form when there is no name.
func (l Location) MarshalYAML() (any, error) {
	if l.Name == "" {
		return l.URL, nil
	}
	return struct {
		Link string `yaml:"link"`
		Name string `yaml:"name,omitempty"`
	}{l.URL, l.Name}, nil
}

// mergeLocations unions two location sequences by URL, keeping base
// order and base entries on collision.
func mergeLocations(base, extra []Location) []Location {
	seen := make(map[string]bool, len(base))
	for _, l := range base {
		seen[l.key()] = true
	}
	for _, l := range extra {
		if seen[l.key()] {
			continue
		}
		seen[l.key()] = true
		base = append(base, l)
	}
	return base
}
