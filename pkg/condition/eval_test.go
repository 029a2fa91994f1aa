package condition

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raehik/loot-api/pkg/metadata"
)

// fakeState is an in-memory State with call counting, keyed by
// lowercased path.
type fakeState struct {
	files    map[string]bool
	crcs     map[string]uint32
	versions map[string]string
	active   map[string]bool
	entries  map[string][]string // dir -> entry names
	calls    map[string]int
}

func newFakeState() *fakeState {
	return &fakeState{
		files:    make(map[string]bool),
		crcs:     make(map[string]uint32),
		versions: make(map[string]string),
		active:   make(map[string]bool),
		entries:  make(map[string][]string),
		calls:    make(map[string]int),
	}
}

func (s *fakeState) FileExists(path string) (bool, error) {
	s.calls["FileExists"]++
	return s.files[strings.ToLower(path)], nil
}

func (s *fakeState) CountMatching(dir string, re *regexp.Regexp) (int, error) {
	s.calls["CountMatching"]++
	n := 0
	for _, name := range s.entries[strings.ToLower(dir)] {
		if re.MatchString(name) {
			n++
		}
	}
	return n, nil
}

func (s *fakeState) CRC(path string) (uint32, error) {
	s.calls["CRC"]++
	crc, ok := s.crcs[strings.ToLower(path)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", metadata.ErrNotFound, path)
	}
	return crc, nil
}

func (s *fakeState) Version(path string) (string, error) {
	s.calls["Version"]++
	v, ok := s.versions[strings.ToLower(path)]
	if !ok {
		return "", fmt.Errorf("%w: %s", metadata.ErrNotFound, path)
	}
	return v, nil
}

func (s *fakeState) IsActive(name string) (bool, error) {
	s.calls["IsActive"]++
	return s.active[strings.ToLower(name)], nil
}

func testEvaluator(state *fakeState) *Evaluator {
	return NewEvaluator(state, NewCache(), zerolog.Nop())
}

func TestEvaluateAtoms(t *testing.T) {
	state := newFakeState()
	state.files["foo.esp"] = true
	state.crcs["foo.esp"] = 0x3C54E2A9
	state.versions["foo.esp"] = "1.2.0"
	state.versions["bare.esp"] = ""
	state.active["foo.esp"] = true
	state.entries[""] = []string{"Foo.esp", "Foo Deluxe.esp", "Bar.esp"}
	state.entries["textures"] = []string{"foo.dds"}

	tests := []struct {
		name      string
		condition string
		want      bool
	}{
		{name: "file present", condition: `file("Foo.esp")`, want: true},
		{name: "file absent", condition: `file("Missing.esp")`, want: false},
		{name: "active plugin", condition: `active("foo.esp")`, want: true},
		{name: "inactive plugin", condition: `active("Bar.esp")`, want: false},
		{name: "regex matches", condition: `regex("Foo.*\.esp")`, want: true},
		{name: "regex in subdirectory", condition: `regex("textures/foo\.dds")`, want: true},
		{name: "regex no match", condition: `regex("Baz.*\.esp")`, want: false},
		{name: "many needs more than one", condition: `many("Foo.*\.esp")`, want: true},
		{name: "many with single match", condition: `many("Bar\.esp")`, want: false},
		{name: "checksum match", condition: `checksum("Foo.esp", 3C54E2A9)`, want: true},
		{name: "checksum prefixed", condition: `checksum("Foo.esp", 0x3C54E2A9)`, want: true},
		{name: "checksum mismatch", condition: `checksum("Foo.esp", DEADBEEF)`, want: false},
		{name: "checksum of missing file", condition: `checksum("Missing.esp", DEADBEEF)`, want: false},
		{name: "version equal", condition: `version("Foo.esp", "1.2", ==)`, want: true},
		{name: "version at least", condition: `version("Foo.esp", "1.0", >=)`, want: true},
		{name: "version below", condition: `version("Foo.esp", "2.0", <)`, want: true},
		{name: "version not equal", condition: `version("Foo.esp", "1.3", !=)`, want: true},
		{name: "version of missing file", condition: `version("Missing.esp", "1.0", >=)`, want: false},
		{name: "version of missing file not equal", condition: `version("Missing.esp", "1.0", !=)`, want: true},
		{name: "unversioned file counts as zero", condition: `version("Bare.esp", "0", ==)`, want: true},
		{name: "empty condition", condition: "", want: true},
		{name: "blank condition", condition: "   ", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := testEvaluator(state).Evaluate(tt.condition)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateOperators(t *testing.T) {
	state := newFakeState()
	state.files["a.esp"] = true
	state.files["b.esp"] = true

	tests := []struct {
		name      string
		condition string
		want      bool
	}{
		{name: "and both true", condition: `file("a.esp") and file("b.esp")`, want: true},
		{name: "and one false", condition: `file("a.esp") and file("c.esp")`, want: false},
		{name: "or one true", condition: `file("c.esp") or file("a.esp")`, want: true},
		{name: "or both false", condition: `file("c.esp") or file("d.esp")`, want: false},
		{name: "not", condition: `not file("c.esp")`, want: true},
		{name: "double not", condition: `not not file("a.esp")`, want: true},
		{name: "and binds tighter than or", condition: `file("a.esp") or file("c.esp") and file("d.esp")`, want: true},
		{name: "parentheses regroup", condition: `(file("a.esp") or file("c.esp")) and file("d.esp")`, want: false},
		{name: "not applies to group", condition: `not (file("a.esp") and file("c.esp"))`, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := testEvaluator(state).Evaluate(tt.condition)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateShortCircuit(t *testing.T) {
	state := newFakeState()
	state.files["a.esp"] = true

	e := testEvaluator(state)
	got, err := e.Evaluate(`file("a.esp") or file("b.esp")`)
	require.NoError(t, err)
	assert.True(t, got)
	assert.Equal(t, 1, state.calls["FileExists"], "or must not evaluate its right side")

	state.calls["FileExists"] = 0
	got, err = e.Evaluate(`not file("a.esp") and file("b.esp")`)
	require.NoError(t, err)
	assert.False(t, got)
	assert.Equal(t, 1, state.calls["FileExists"], "and must not evaluate its right side")
}

func TestEvaluateSyntaxErrors(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		wantErr   error
	}{
		{name: "unknown function", condition: `banana("foo")`, wantErr: metadata.ErrMalformed},
		{name: "missing close paren", condition: `file("foo.esp"`, wantErr: metadata.ErrMalformed},
		{name: "unterminated string", condition: `file("foo.esp)`, wantErr: metadata.ErrMalformed},
		{name: "trailing garbage", condition: `file("foo.esp") banana`, wantErr: metadata.ErrMalformed},
		{name: "missing argument", condition: `file()`, wantErr: metadata.ErrMalformed},
		{name: "bare operand", condition: `and file("foo.esp")`, wantErr: metadata.ErrMalformed},
		{name: "lone equals", condition: `version("a", "1", =)`, wantErr: metadata.ErrMalformed},
		{name: "bad checksum", condition: `checksum("a.esp", XYZ)`, wantErr: metadata.ErrMalformed},
		{name: "oversized checksum", condition: `checksum("a.esp", 1DEADBEEF0)`, wantErr: metadata.ErrMalformed},
		{name: "bad pattern", condition: `regex("foo(")`, wantErr: metadata.ErrMalformed},
		{name: "absolute path", condition: `file("/etc/passwd")`, wantErr: metadata.ErrInvalidArgument},
		{name: "drive path", condition: `file("C:/Games/foo.esp")`, wantErr: metadata.ErrInvalidArgument},
		{name: "escaping path", condition: `file("../../secret")`, wantErr: metadata.ErrInvalidArgument},
		{name: "empty path", condition: `file("")`, wantErr: metadata.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testEvaluator(newFakeState()).Evaluate(tt.condition)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEvaluatePathAllowances(t *testing.T) {
	state := newFakeState()
	state.files["../game.exe"] = true
	state.files["meshes/foo.nif"] = true

	e := testEvaluator(state)

	got, err := e.Evaluate(`file("../Game.exe")`)
	require.NoError(t, err, "one parent step is allowed")
	assert.True(t, got)

	got, err = e.Evaluate(`file("meshes/foo.nif")`)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvaluateCaching(t *testing.T) {
	state := newFakeState()
	state.files["a.esp"] = true

	e := testEvaluator(state)

	for i := 0; i < 3; i++ {
		got, err := e.Evaluate(`file("a.esp")`)
		require.NoError(t, err)
		assert.True(t, got)
	}
	assert.Equal(t, 1, state.calls["FileExists"], "repeat evaluations must hit the cache")

	// Keys are case-insensitive.
	_, err := e.Evaluate(`FILE("A.ESP")`)
	require.NoError(t, err)
	assert.Equal(t, 1, state.calls["FileExists"])

	e.Cache().Invalidate()
	got, err := e.Evaluate(`file("a.esp")`)
	require.NoError(t, err)
	assert.True(t, got)
	assert.Equal(t, 2, state.calls["FileExists"], "invalidation must force recomputation")
}

func TestEvaluateCachesNegativeOutcomes(t *testing.T) {
	state := newFakeState()
	e := testEvaluator(state)

	for i := 0; i < 2; i++ {
		got, err := e.Evaluate(`file("missing.esp")`)
		require.NoError(t, err)
		assert.False(t, got)
	}
	assert.Equal(t, 1, state.calls["FileExists"])
}

func TestEvaluateCachesFileFacts(t *testing.T) {
	state := newFakeState()
	state.crcs["a.esp"] = 0xAA

	e := testEvaluator(state)
	for _, cond := range []string{
		`checksum("a.esp", AA)`,
		`checksum("A.esp", BB)`,
	} {
		_, err := e.Evaluate(cond)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, state.calls["CRC"], "distinct conditions on one file share its checksum")
}

func TestFilterMessages(t *testing.T) {
	state := newFakeState()
	state.files["a.esp"] = true

	keep := metadata.Message{
		Type:      metadata.SayMessage,
		Content:   []metadata.MessageContent{{Text: "kept", Lang: "en"}},
		Condition: `file("a.esp")`,
	}
	drop := metadata.Message{
		Type:      metadata.WarnMessage,
		Content:   []metadata.MessageContent{{Text: "dropped", Lang: "en"}},
		Condition: `file("b.esp")`,
	}
	always := metadata.Message{
		Type:    metadata.SayMessage,
		Content: []metadata.MessageContent{{Text: "always", Lang: "en"}},
	}

	got, err := testEvaluator(state).FilterMessages([]metadata.Message{keep, drop, always})
	require.NoError(t, err)
	assert.Equal(t, []metadata.Message{keep, always}, got)
}

func TestEvaluateAll(t *testing.T) {
	state := newFakeState()
	state.files["a.esp"] = true

	entry, err := metadata.NewPluginMetadata("Foo.esp")
	require.NoError(t, err)
	entry.Messages = []metadata.Message{
		{Type: metadata.SayMessage, Content: []metadata.MessageContent{{Text: "kept", Lang: "en"}}},
		{Type: metadata.SayMessage, Content: []metadata.MessageContent{{Text: "dropped", Lang: "en"}}, Condition: `file("b.esp")`},
	}
	entry.Tags = []metadata.Tag{
		{Name: "Relev", Add: true, Condition: `file("a.esp")`},
		{Name: "Delev", Add: true, Condition: `file("b.esp")`},
	}
	entry.After = []metadata.File{
		{Name: "Kept.esp", Condition: `file("a.esp")`},
		{Name: "Dropped.esp", Condition: `file("b.esp")`},
	}
	entry.Dirty = []metadata.CleaningData{{CRC: 0xAA, ITM: 1}}

	e := testEvaluator(state)

	t.Run("filters failing elements", func(t *testing.T) {
		got, err := e.EvaluateAll(entry)
		require.NoError(t, err)
		require.Len(t, got.Messages, 1)
		assert.Equal(t, "kept", got.Messages[0].Content[0].Text)
		assert.Equal(t, []metadata.Tag{{Name: "Relev", Add: true, Condition: `file("a.esp")`}}, got.Tags)
		assert.Equal(t, []metadata.File{{Name: "Kept.esp", Condition: `file("a.esp")`}}, got.After)
		assert.Equal(t, entry.Dirty, got.Dirty, "cleaning data passes through untouched")
	})

	t.Run("source entry is not modified", func(t *testing.T) {
		assert.Len(t, entry.Messages, 2)
		assert.Len(t, entry.Tags, 2)
	})

	t.Run("failing entry condition empties the result", func(t *testing.T) {
		gated := entry.Clone()
		gated.Condition = `file("b.esp")`
		got, err := e.EvaluateAll(gated)
		require.NoError(t, err)
		assert.Equal(t, "Foo.esp", got.Name)
		assert.True(t, got.HasNameOnly())
	})

	t.Run("passing entry condition is cleared", func(t *testing.T) {
		gated := entry.Clone()
		gated.Condition = `file("a.esp")`
		got, err := e.EvaluateAll(gated)
		require.NoError(t, err)
		assert.Empty(t, got.Condition)
		assert.Len(t, got.Tags, 1)
	})

	t.Run("malformed condition surfaces", func(t *testing.T) {
		bad := entry.Clone()
		bad.Condition = `banana("x")`
		_, err := e.EvaluateAll(bad)
		assert.ErrorIs(t, err, metadata.ErrMalformed)
	})
}
