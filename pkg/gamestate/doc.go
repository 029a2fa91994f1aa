// Package gamestate answers questions about an installed game: which
// files are present (ghosted plugins included), their checksums and
// header versions, and which plugins are active. It is the concrete
// state a condition evaluator runs against.
//
// Paths are relative to the game's data directory and are resolved
// case-insensitively, so metadata written against Windows name casing
// works on case-sensitive filesystems. Checksums can be memoised across
// runs in a persistent cache keyed by file identity.
package gamestate
