package metadata

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// regexEntryChars are the characters whose presence marks an entry name
// as a regular expression rather than an exact plugin name.
const regexEntryChars = `:\*?|`

// PluginMetadata is the metadata attached to one entry in a list. An
// entry is either an exact plugin name or, when the name contains regex
// metacharacters, a pattern that applies to every matching plugin.
type PluginMetadata struct {
	Name      string         `json:"name"`
	Enabled   bool           `json:"enabled"`             // Whether non-override consumers should apply this entry.
	Condition string         `json:"condition,omitempty"` // Optional condition gating the whole entry.
	After     []File         `json:"after,omitempty"`
	Req       []File         `json:"req,omitempty"`
	Inc       []File         `json:"inc,omitempty"`
	Messages  []Message      `json:"msg,omitempty"`
	Tags      []Tag          `json:"tag,omitempty"`
	Dirty     []CleaningData `json:"dirty,omitempty"`
	Locations []Location     `json:"url,omitempty"`

	regex *regexp.Regexp // Compiled pattern for regex entries, nil otherwise.
}

// NewPluginMetadata returns an enabled, otherwise empty entry for the
// given name. Returns ErrInvalidArgument if the name is empty or is a
// regex entry that does not compile.
func NewPluginMetadata(name string) (PluginMetadata, error) {
	if name == "" {
		return PluginMetadata{}, fmt.Errorf("%w: plugin name must not be empty", ErrInvalidArgument)
	}
	p := PluginMetadata{Name: name, Enabled: true}
	if IsRegexEntry(name) {
		re, err := compileEntryName(name)
		if err != nil {
			return PluginMetadata{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		p.regex = re
	}
	return p, nil
}

// IsRegexEntry reports whether the given entry name is a pattern rather
// than an exact plugin name.
func IsRegexEntry(name string) bool {
	return strings.ContainsAny(name, regexEntryChars)
}

// compileEntryName compiles a regex entry name for case-insensitive
// whole-name matching.
func compileEntryName(name string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)\A(?:` + name + `)\z`)
}

// IsRegexEntry reports whether this entry's name is a pattern.
func (p PluginMetadata) IsRegexEntry() bool {
	return IsRegexEntry(p.Name)
}

// Matches reports whether this entry applies to the given plugin name:
// a case-insensitive exact comparison for plain entries, a whole-name
// pattern match for regex entries.
func (p PluginMetadata) Matches(name string) bool {
	if p.regex != nil {
		return p.regex.MatchString(name)
	}
	if p.IsRegexEntry() {
		re, err := compileEntryName(p.Name)
		if err != nil {
			return false
		}
		return re.MatchString(name)
	}
	return strings.EqualFold(p.Name, name)
}

// HasNameOnly reports whether the entry carries no metadata beyond its
// name. Name-only entries are no-ops when merged and are not persisted.
func (p PluginMetadata) HasNameOnly() bool {
	return p.Enabled &&
		p.Condition == "" &&
		len(p.After) == 0 &&
		len(p.Req) == 0 &&
		len(p.Inc) == 0 &&
		len(p.Messages) == 0 &&
		len(p.Tags) == 0 &&
		len(p.Dirty) == 0 &&
		len(p.Locations) == 0
}

// Merge overlays other onto p. File references, tag directives and
// locations union (keeping p's entries on collision), messages append
// in order with duplicates preserved, and cleaning data accumulates by
// CRC with other's record replacing p's for the same CRC. The enabled
// flag is taken from other, as is the entry condition when other has
// one. Merging a name-only entry changes nothing.
func (p *PluginMetadata) Merge(other PluginMetadata) {
	if other.HasNameOnly() {
		return
	}
	p.Enabled = other.Enabled
	if other.Condition != "" {
		p.Condition = other.Condition
	}
	p.After = mergeFiles(p.After, other.After)
	p.Req = mergeFiles(p.Req, other.Req)
	p.Inc = mergeFiles(p.Inc, other.Inc)
	p.Messages = append(p.Messages, cloneMessages(other.Messages)...)
	p.Tags = mergeTags(p.Tags, other.Tags)
	p.Dirty = mergeCleaningData(p.Dirty, other.Dirty)
	p.Locations = mergeLocations(p.Locations, other.Locations)
}

// Clone returns a deep copy that shares no mutable state with p.
func (p PluginMetadata) Clone() PluginMetadata {
	out := p
	out.After = append([]File(nil), p.After...)
	out.Req = append([]File(nil), p.Req...)
	out.Inc = append([]File(nil), p.Inc...)
	out.Messages = cloneMessages(p.Messages)
	out.Tags = append([]Tag(nil), p.Tags...)
	out.Dirty = append([]CleaningData(nil), p.Dirty...)
	out.Locations = append([]Location(nil), p.Locations...)
	return out
}

type pluginDoc struct {
	Name      string         `yaml:"name"`
	Enabled   *bool          `yaml:"enabled,omitempty"`
	Condition string         `yaml:"condition,omitempty"`
	After     []File         `yaml:"after,omitempty"`
	Req       []File         `yaml:"req,omitempty"`
	Inc       []File         `yaml:"inc,omitempty"`
	Messages  []Message      `yaml:"msg,omitempty"`
	Tags      []Tag          `yaml:"tag,omitempty"`
	Dirty     []CleaningData `yaml:"dirty,omitempty"`
	Locations []Location     `yaml:"url,omitempty"`
}

// UnmarshalYAML decodes a plugin entry. An absent enabled key means
// enabled.
func (p *PluginMetadata) UnmarshalYAML(value *yaml.Node) error {
	var aux pluginDoc
	if err := value.Decode(&aux); err != nil {
		return err
	}
	if aux.Name == "" {
		return fmt.Errorf("line %d: %w: plugin entry must have a name", value.Line, ErrMalformed)
	}
	built := PluginMetadata{Name: aux.Name, Enabled: true}
	if IsRegexEntry(aux.Name) {
		re, err := compileEntryName(aux.Name)
		if err != nil {
			return fmt.Errorf("line %d: %w: entry name %q: %v", value.Line, ErrMalformed, aux.Name, err)
		}
		built.regex = re
	}
	if aux.Enabled != nil {
		built.Enabled = *aux.Enabled
	}
	built.Condition = aux.Condition
	built.After = aux.After
	built.Req = aux.Req
	built.Inc = aux.Inc
	built.Messages = aux.Messages
	built.Tags = aux.Tags
	built.Dirty = aux.Dirty
	built.Locations = aux.Locations
	*p = built
	return nil
}

// MarshalYAML emits the entry, omitting the enabled key unless the
// entry is disabled and omitting empty collections.
func (p PluginMetadata) MarshalYAML() (any, error) {
	aux := pluginDoc{
		Name:      p.Name,
		Condition: p.Condition,
		After:     p.After,
		Req:       p.Req,
		Inc:       p.Inc,
		Messages:  p.Messages,
		Tags:      p.Tags,
		Dirty:     p.Dirty,
		Locations: p.Locations,
	}
	if !p.Enabled {
		disabled := false
		aux.Enabled = &disabled
	}
	return aux, nil
}
