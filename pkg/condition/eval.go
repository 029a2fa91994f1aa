package condition

import (
	"errors"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/raehik/loot-api/pkg/metadata"
)

// State is the view of an installed game the evaluator queries. Paths
// are relative to the game's data directory and matched
// case-insensitively.
type State interface {
	// FileExists reports whether the named file is installed.
	FileExists(path string) (bool, error)
	// CountMatching returns how many entries of the named directory
	// (the data directory when dir is empty) match the pattern.
	CountMatching(dir string, re *regexp.Regexp) (int, error)
	// CRC returns the CRC-32 (IEEE) of the named file's contents.
	// Returns ErrNotFound if the file is not installed.
	CRC(path string) (uint32, error)
	// Version returns the version recorded in the named file's header,
	// or "" when it records none. Returns ErrNotFound if the file is
	// not installed.
	Version(path string) (string, error)
	// IsActive reports whether the named plugin is in the active load
	// order.
	IsActive(name string) (bool, error)
}

// Evaluator evaluates condition strings against a State, memoising
// outcomes in a Cache.
type Evaluator struct {
	state State
	cache *Cache
	log   zerolog.Logger
}

// NewEvaluator returns an evaluator over the given state and cache.
func NewEvaluator(state State, cache *Cache, log zerolog.Logger) *Evaluator {
	return &Evaluator{state: state, cache: cache, log: log}
}

// Cache returns the cache the evaluator memoises into.
func (e *Evaluator) Cache() *Cache {
	return e.cache
}

// Evaluate parses and evaluates a condition string. The empty condition
// is true. Outcomes are cached under the lowercased condition text
// until the cache is invalidated.
func (e *Evaluator) Evaluate(condition string) (bool, error) {
	trimmed := strings.TrimSpace(condition)
	if trimmed == "" {
		return true, nil
	}
	return e.cache.LookupOrCompute(strings.ToLower(trimmed), func() (bool, error) {
		root, err := parse(trimmed)
		if err != nil {
			return false, err
		}
		result, err := root.eval(e)
		if err != nil {
			return false, err
		}
		e.log.Trace().Str("condition", trimmed).Bool("result", result).Msg("condition evaluated")
		return result, nil
	})
}

// FilterMessages returns the messages whose conditions hold, in order.
func (e *Evaluator) FilterMessages(msgs []metadata.Message) ([]metadata.Message, error) {
	var out []metadata.Message
	for _, m := range msgs {
		ok, err := e.Evaluate(m.Condition)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// EvaluateAll returns a copy of the given metadata with every
// condition-gated element resolved: if the entry condition fails the
// result is name-only, and messages, tag directives and file references
// whose conditions fail are removed. Cleaning data and locations carry
// no conditions and pass through.
func (e *Evaluator) EvaluateAll(p metadata.PluginMetadata) (metadata.PluginMetadata, error) {
	ok, err := e.Evaluate(p.Condition)
	if err != nil {
		return metadata.PluginMetadata{}, err
	}
	if !ok {
		return metadata.NewPluginMetadata(p.Name)
	}

	out := p.Clone()
	out.Condition = ""

	if out.Messages, err = e.FilterMessages(out.Messages); err != nil {
		return metadata.PluginMetadata{}, err
	}

	tags := out.Tags[:0:0]
	for _, t := range out.Tags {
		ok, err := e.Evaluate(t.Condition)
		if err != nil {
			return metadata.PluginMetadata{}, err
		}
		if ok {
			tags = append(tags, t)
		}
	}
	out.Tags = tags

	if out.After, err = e.filterFiles(out.After); err != nil {
		return metadata.PluginMetadata{}, err
	}
	if out.Req, err = e.filterFiles(out.Req); err != nil {
		return metadata.PluginMetadata{}, err
	}
	if out.Inc, err = e.filterFiles(out.Inc); err != nil {
		return metadata.PluginMetadata{}, err
	}
	return out, nil
}

func (e *Evaluator) filterFiles(files []metadata.File) ([]metadata.File, error) {
	var out []metadata.File
	for _, f := range files {
		ok, err := e.Evaluate(f.Condition)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// node is an evaluable expression tree node.
type node interface {
	eval(e *Evaluator) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) eval(e *Evaluator) (bool, error) {
	v, err := n.left.eval(e)
	if err != nil || v {
		return v, err
	}
	return n.right.eval(e)
}

type andNode struct{ left, right node }

func (n andNode) eval(e *Evaluator) (bool, error) {
	v, err := n.left.eval(e)
	if err != nil || !v {
		return v, err
	}
	return n.right.eval(e)
}

type notNode struct{ operand node }

func (n notNode) eval(e *Evaluator) (bool, error) {
	v, err := n.operand.eval(e)
	return !v, err
}

type fileExistsNode struct{ path string }

func (n fileExistsNode) eval(e *Evaluator) (bool, error) {
	return e.state.FileExists(n.path)
}

type activeNode struct{ name string }

func (n activeNode) eval(e *Evaluator) (bool, error) {
	return e.state.IsActive(n.name)
}

type regexMatchNode struct {
	dir  string
	re   *regexp.Regexp
	many bool
}

func (n regexMatchNode) eval(e *Evaluator) (bool, error) {
	count, err := e.state.CountMatching(n.dir, n.re)
	if err != nil {
		return false, err
	}
	if n.many {
		return count > 1, nil
	}
	return count > 0, nil
}

type checksumNode struct {
	path string
	crc  uint32
}

func (n checksumNode) eval(e *Evaluator) (bool, error) {
	crc, err := e.cache.crc(strings.ToLower(n.path), func() (uint32, error) {
		return e.state.CRC(n.path)
	})
	if errors.Is(err, metadata.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return crc == n.crc, nil
}

type versionNode struct {
	path    string
	version string
	op      string
}

func (n versionNode) eval(e *Evaluator) (bool, error) {
	ver, err := e.cache.version(strings.ToLower(n.path), func() (string, error) {
		return e.state.Version(n.path)
	})
	if errors.Is(err, metadata.ErrNotFound) {
		// A missing file has no version at all, which only the
		// not-equal comparison is satisfied by.
		return n.op == "!=", nil
	}
	if err != nil {
		return false, err
	}
	if ver == "" {
		ver = "0"
	}
	cmp := CompareVersions(ver, n.version)
	switch n.op {
	case "==":
		return cmp == 0, nil
	case "!=":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case ">":
		return cmp > 0, nil
	case "<=":
		return cmp <= 0, nil
	default:
		return cmp >= 0, nil
	}
}
