package condition

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/raehik/loot-api/pkg/metadata"
)

// The grammar, in rough EBNF:
//
//	expr  = and { "or" and }
//	and   = unary { "and" unary }
//	unary = { "not" } ( "(" expr ")" | atom )
//	atom  = name "(" args ")"
//
// where name is one of file, active, regex, many, checksum or version.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokName
	tokString
	tokComparison
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	input string
	pos   int
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}
	start := l.pos
	switch c := l.input[l.pos]; {
	case c == '(':
		l.pos++
		return token{tokLParen, "(", start}, nil
	case c == ')':
		l.pos++
		return token{tokRParen, ")", start}, nil
	case c == ',':
		l.pos++
		return token{tokComma, ",", start}, nil
	case c == '"':
		l.pos++
		end := strings.IndexByte(l.input[l.pos:], '"')
		if end < 0 {
			return token{}, fmt.Errorf("%w: unterminated string at offset %d", metadata.ErrMalformed, start)
		}
		text := l.input[l.pos : l.pos+end]
		l.pos += end + 1
		return token{tokString, text, start}, nil
	case c == '=' || c == '!':
		if l.pos+1 >= len(l.input) || l.input[l.pos+1] != '=' {
			return token{}, fmt.Errorf("%w: unexpected %q at offset %d", metadata.ErrMalformed, string(c), start)
		}
		l.pos += 2
		return token{tokComparison, l.input[start : start+2], start}, nil
	case c == '<' || c == '>':
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.pos++
		}
		return token{tokComparison, l.input[start:l.pos], start}, nil
	case isNameByte(c):
		for l.pos < len(l.input) && isNameByte(l.input[l.pos]) {
			l.pos++
		}
		return token{tokName, l.input[start:l.pos], start}, nil
	default:
		return token{}, fmt.Errorf("%w: unexpected %q at offset %d", metadata.ErrMalformed, string(c), start)
	}
}

func isNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

type parser struct {
	lex lexer
	tok token
}

// parse compiles a condition string into an evaluable expression tree.
func parse(input string) (node, error) {
	p := &parser{lex: lexer{input: input}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %q at offset %d", metadata.ErrMalformed, p.tok.text, p.tok.pos)
	}
	return n, nil
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokName && p.tok.text == "or" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokName && p.tok.text == "and" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	negated := false
	for p.tok.kind == tokName && p.tok.text == "not" {
		negated = !negated
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	var n node
	switch p.tok.kind {
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, fmt.Errorf("%w: expected ) at offset %d", metadata.ErrMalformed, p.tok.pos)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		n = inner
	case tokName:
		atom, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		n = atom
	default:
		return nil, fmt.Errorf("%w: expected a function or ( at offset %d", metadata.ErrMalformed, p.tok.pos)
	}
	if negated {
		n = notNode{n}
	}
	return n, nil
}

func (p *parser) parseAtom() (node, error) {
	name := p.tok.text
	pos := p.tok.pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind != tokLParen {
		return nil, fmt.Errorf("%w: expected ( after %q at offset %d", metadata.ErrMalformed, name, p.tok.pos)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	var n node
	var err error
	switch name {
	case "file":
		n, err = p.parseFileAtom()
	case "active":
		n, err = p.parseActiveAtom()
	case "regex":
		n, err = p.parseRegexAtom(false)
	case "many":
		n, err = p.parseRegexAtom(true)
	case "checksum":
		n, err = p.parseChecksumAtom()
	case "version":
		n, err = p.parseVersionAtom()
	default:
		return nil, fmt.Errorf("%w: unknown function %q at offset %d", metadata.ErrMalformed, name, pos)
	}
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokRParen {
		return nil, fmt.Errorf("%w: expected ) at offset %d", metadata.ErrMalformed, p.tok.pos)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *parser) parseString() (string, error) {
	if p.tok.kind != tokString {
		return "", fmt.Errorf("%w: expected a quoted string at offset %d", metadata.ErrMalformed, p.tok.pos)
	}
	s := p.tok.text
	if err := p.advance(); err != nil {
		return "", err
	}
	return s, nil
}

func (p *parser) parseComma() error {
	if p.tok.kind != tokComma {
		return fmt.Errorf("%w: expected , at offset %d", metadata.ErrMalformed, p.tok.pos)
	}
	return p.advance()
}

func (p *parser) parseFileAtom() (node, error) {
	arg, err := p.parseString()
	if err != nil {
		return nil, err
	}
	if err := validatePath(arg); err != nil {
		return nil, err
	}
	return fileExistsNode{path: arg}, nil
}

func (p *parser) parseActiveAtom() (node, error) {
	arg, err := p.parseString()
	if err != nil {
		return nil, err
	}
	if arg == "" {
		return nil, fmt.Errorf("%w: active() needs a plugin name", metadata.ErrInvalidArgument)
	}
	return activeNode{name: arg}, nil
}

func (p *parser) parseRegexAtom(many bool) (node, error) {
	arg, err := p.parseString()
	if err != nil {
		return nil, err
	}
	dir, pattern, err := splitPattern(arg)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(`(?i)\A(?:` + pattern + `)\z`)
	if err != nil {
		return nil, fmt.Errorf("%w: pattern %q: %v", metadata.ErrMalformed, pattern, err)
	}
	return regexMatchNode{dir: dir, re: re, many: many}, nil
}

func (p *parser) parseChecksumAtom() (node, error) {
	pathArg, err := p.parseString()
	if err != nil {
		return nil, err
	}
	if err := validatePath(pathArg); err != nil {
		return nil, err
	}
	if err := p.parseComma(); err != nil {
		return nil, err
	}
	if p.tok.kind != tokName && p.tok.kind != tokString {
		return nil, fmt.Errorf("%w: expected a checksum at offset %d", metadata.ErrMalformed, p.tok.pos)
	}
	raw := strings.TrimPrefix(strings.TrimPrefix(p.tok.text, "0x"), "0X")
	crc, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a 32-bit checksum", metadata.ErrMalformed, p.tok.text)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return checksumNode{path: pathArg, crc: uint32(crc)}, nil
}

func (p *parser) parseVersionAtom() (node, error) {
	pathArg, err := p.parseString()
	if err != nil {
		return nil, err
	}
	if err := validatePath(pathArg); err != nil {
		return nil, err
	}
	if err := p.parseComma(); err != nil {
		return nil, err
	}
	version, err := p.parseString()
	if err != nil {
		return nil, err
	}
	if err := p.parseComma(); err != nil {
		return nil, err
	}
	if p.tok.kind != tokComparison {
		return nil, fmt.Errorf("%w: expected a comparison operator at offset %d", metadata.ErrMalformed, p.tok.pos)
	}
	op := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	return versionNode{path: pathArg, version: version, op: op}, nil
}

// validatePath checks that a condition path stays within the game's
// directory tree. Paths are relative to the data directory; a single
// leading parent step is allowed so conditions can see the game's own
// binary next to the data directory.
func validatePath(p string) error {
	if p == "" {
		return fmt.Errorf("%w: empty path", metadata.ErrInvalidArgument)
	}
	norm := path.Clean(strings.ReplaceAll(p, `\`, "/"))
	if path.IsAbs(norm) || (len(norm) > 1 && norm[1] == ':') {
		return fmt.Errorf("%w: path %q must be relative", metadata.ErrInvalidArgument, p)
	}
	rest := strings.TrimPrefix(norm, "../")
	if rest == ".." || strings.HasPrefix(rest, "../") {
		return fmt.Errorf("%w: path %q escapes the game directory", metadata.ErrInvalidArgument, p)
	}
	return nil
}

// splitPattern splits a regex condition argument into its literal
// parent directory and the final component, which is the pattern.
// Slashes separate components; backslashes belong to the pattern.
func splitPattern(arg string) (dir, pattern string, err error) {
	if arg == "" {
		return "", "", fmt.Errorf("%w: empty pattern", metadata.ErrInvalidArgument)
	}
	i := strings.LastIndexByte(arg, '/')
	if i < 0 {
		return "", arg, nil
	}
	dir, pattern = arg[:i], arg[i+1:]
	if pattern == "" {
		return "", "", fmt.Errorf("%w: pattern %q has no file component", metadata.ErrInvalidArgument, arg)
	}
	if err := validatePath(dir); err != nil {
		return "", "", err
	}
	return dir, pattern, nil
}
