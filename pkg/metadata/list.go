package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// listDocument is the on-disk shape of a metadata list.
type listDocument struct {
	BashTags []string         `yaml:"bash_tags,omitempty"`
	Globals  []Message        `yaml:"globals,omitempty"`
	Plugins  []PluginMetadata `yaml:"plugins,omitempty"`
}

// List is an ordered collection of plugin metadata entries together
// with list-level messages and a declared Bash Tag vocabulary. Entry
// names are unique case-insensitively; document order is preserved
// through load, edit and save.
type List struct {
	bashTags []string
	messages []Message
	plugins  []PluginMetadata
	index    map[string]int // Lowercased entry name -> plugins index.
}

// NewList returns an empty list ready for use.
func NewList() *List {
	return &List{index: make(map[string]int)}
}

// Load replaces the list's contents with the document at path. On any
// error the list is left unchanged. Returns ErrNotFound if the path
// does not exist, ErrFileAccess if it cannot be read, and ErrMalformed
// if the document does not parse or contains duplicate entry names.
func (l *List) Load(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrFileAccess, path, err)
	}

	var doc listDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		if errors.Is(err, ErrMalformed) {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		return fmt.Errorf("parsing %s: %w: %v", path, ErrMalformed, err)
	}

	index := make(map[string]int, len(doc.Plugins))
	for i, p := range doc.Plugins {
		key := strings.ToLower(p.Name)
		if _, dup := index[key]; dup {
			return fmt.Errorf("parsing %s: %w: duplicate entry for %q", path, ErrMalformed, p.Name)
		}
		index[key] = i
	}

	l.bashTags = doc.BashTags
	l.messages = doc.Globals
	l.plugins = doc.Plugins
	l.index = index
	return nil
}

// Save writes the list to path atomically, creating or replacing the
// file. The parent directory must exist.
func (l *List) Save(path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	doc := listDocument{
		BashTags: l.bashTags,
		Globals:  l.messages,
		Plugins:  l.plugins,
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding list: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding list: %w", err)
	}
	return writeFileAtomic(path, buf.Bytes())
}

// writeFileAtomic writes data to path via a temp file in the same
// directory, synced and renamed into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".list-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file in %s: %v", ErrFileAccess, dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: writing %s: %v", ErrFileAccess, path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: syncing %s: %v", ErrFileAccess, path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: closing %s: %v", ErrFileAccess, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: renaming into %s: %v", ErrFileAccess, path, err)
	}
	return nil
}

// Clear empties the list.
func (l *List) Clear() {
	l.bashTags = nil
	l.messages = nil
	l.plugins = nil
	l.index = make(map[string]int)
}

// Plugins returns a copy of all entries in document order, regex
// entries included.
func (l *List) Plugins() []PluginMetadata {
	out := make([]PluginMetadata, len(l.plugins))
	for i := range l.plugins {
		out[i] = l.plugins[i].Clone()
	}
	return out
}

// Messages returns a copy of the list-level messages in document order.
func (l *List) Messages() []Message {
	return cloneMessages(l.messages)
}

// BashTags returns the tag vocabulary: the declared bash_tags plus the
// name of every tag any entry suggests, deduplicated and sorted.
func (l *List) BashTags() []string {
	seen := make(map[string]bool, len(l.bashTags))
	var tags []string
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		tags = append(tags, name)
	}
	for _, name := range l.bashTags {
		add(name)
	}
	for i := range l.plugins {
		for _, t := range l.plugins[i].Tags {
			add(t.Name)
		}
	}
	sort.Strings(tags)
	return tags
}

// SetBashTags replaces the declared tag vocabulary.
func (l *List) SetBashTags(tags []string) {
	l.bashTags = append([]string(nil), tags...)
}

// SetMessages replaces the list-level messages.
func (l *List) SetMessages(msgs []Message) {
	l.messages = cloneMessages(msgs)
}

// FindPlugin resolves the metadata that applies to the given plugin
// name: the exact-name entry, if any, with every matching regex entry
// merged on top in document order. The result is always well-formed; if
// nothing applies it is a name-only entry. Returns ErrInvalidArgument
// for an empty name.
func (l *List) FindPlugin(name string) (PluginMetadata, error) {
	if name == "" {
		return PluginMetadata{}, fmt.Errorf("%w: plugin name must not be empty", ErrInvalidArgument)
	}
	match := PluginMetadata{Name: name, Enabled: true}
	if i, ok := l.index[strings.ToLower(name)]; ok && !l.plugins[i].IsRegexEntry() {
		match = l.plugins[i].Clone()
	}
	for i := range l.plugins {
		p := &l.plugins[i]
		if p.IsRegexEntry() && p.Matches(name) {
			match.Merge(*p)
		}
	}
	return match, nil
}

// storedEntry clones p for insertion, compiling a regex entry's
// pattern. Returns ErrInvalidArgument if the name is empty or does not
// compile.
func storedEntry(p PluginMetadata) (PluginMetadata, error) {
	if p.Name == "" {
		return PluginMetadata{}, fmt.Errorf("%w: plugin name must not be empty", ErrInvalidArgument)
	}
	stored := p.Clone()
	if stored.IsRegexEntry() && stored.regex == nil {
		re, err := compileEntryName(stored.Name)
		if err != nil {
			return PluginMetadata{}, fmt.Errorf("%w: entry name %q: %v", ErrInvalidArgument, stored.Name, err)
		}
		stored.regex = re
	}
	return stored, nil
}

// AddPlugin appends an entry. Returns ErrInvalidArgument if the name is
// empty, a regex entry name does not compile, or an entry with the same
// name already exists; SetPlugin is the replacing form.
func (l *List) AddPlugin(p PluginMetadata) error {
	stored, err := storedEntry(p)
	if err != nil {
		return err
	}
	key := strings.ToLower(p.Name)
	if _, exists := l.index[key]; exists {
		return fmt.Errorf("%w: entry for %q already exists", ErrInvalidArgument, p.Name)
	}
	l.index[key] = len(l.plugins)
	l.plugins = append(l.plugins, stored)
	return nil
}

// SetPlugin inserts an entry, replacing any entry with the same name
// (case-insensitively) in place. The last write wins and the replaced
// entry's document position is kept. Returns ErrInvalidArgument if the
// name is empty or a regex entry name does not compile.
func (l *List) SetPlugin(p PluginMetadata) error {
	stored, err := storedEntry(p)
	if err != nil {
		return err
	}
	key := strings.ToLower(p.Name)
	if i, ok := l.index[key]; ok {
		l.plugins[i] = stored
		return nil
	}
	l.index[key] = len(l.plugins)
	l.plugins = append(l.plugins, stored)
	return nil
}

// ErasePlugin removes the entry whose name equals the given name
// case-insensitively. Erasing an absent name is a no-op.
func (l *List) ErasePlugin(name string) {
	key := strings.ToLower(name)
	i, ok := l.index[key]
	if !ok {
		return
	}
	l.plugins = append(l.plugins[:i], l.plugins[i+1:]...)
	delete(l.index, key)
	for k, j := range l.index {
		if j > i {
			l.index[k] = j - 1
		}
	}
}

// Minimal returns a copy of the list reduced to what a minimal list
// carries: for each entry with at least one tag directive or cleaning
// record, the name, tags and cleaning data. List-level messages and the
// declared vocabulary are dropped.
func (l *List) Minimal() *List {
	out := NewList()
	for i := range l.plugins {
		p := &l.plugins[i]
		if len(p.Tags) == 0 && len(p.Dirty) == 0 {
			continue
		}
		entry := PluginMetadata{
			Name:    p.Name,
			Enabled: true,
			Tags:    append([]Tag(nil), p.Tags...),
			Dirty:   append([]CleaningData(nil), p.Dirty...),
			regex:   p.regex,
		}
		out.index[strings.ToLower(p.Name)] = len(out.plugins)
		out.plugins = append(out.plugins, entry)
	}
	return out
}
