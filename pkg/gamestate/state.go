package gamestate

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/raehik/loot-api/internal/sigcache"
	"github.com/raehik/loot-api/pkg/metadata"
)

// GameType identifies which game's conventions apply when reading
// plugin headers.
type GameType string

// Supported games.
const (
	GameOblivion  GameType = "tes4"
	GameSkyrim    GameType = "tes5"
	GameFallout3  GameType = "fo3"
	GameFalloutNV GameType = "fonv"
)

// ParseGameType maps a configuration string to a GameType.
func ParseGameType(s string) (GameType, error) {
	g := GameType(strings.ToLower(s))
	switch g {
	case GameOblivion, GameSkyrim, GameFallout3, GameFalloutNV:
		return g, nil
	}
	return "", fmt.Errorf("%w: unknown game type %q", metadata.ErrInvalidArgument, s)
}

// recordHeaderSize returns the size of a plugin record header. Oblivion
// predates the two version fields later games added.
func (g GameType) recordHeaderSize() int {
	if g == GameOblivion {
		return 20
	}
	return 24
}

// Config describes the install a State reads.
type Config struct {
	Game       GameType
	DataDir    string // The game's data directory.
	ActiveFile string // Active-plugins file. Empty means nothing is active.
	CacheDir   string // Enables the persistent checksum cache when set.
	Logger     zerolog.Logger
}

// State is a live view of one installed game. Methods are safe for
// concurrent use. Results reflect the disk at call time except for the
// active set, which is read on Open and on Refresh.
type State struct {
	game       GameType
	dataDir    string
	activeFile string
	sigs       *sigcache.Cache
	log        zerolog.Logger

	mu     sync.RWMutex
	active map[string]bool
}

// Open validates the data directory and reads the active-plugins file.
func Open(cfg Config) (*State, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("%w: data directory must be set", metadata.ErrInvalidArgument)
	}
	info, err := os.Stat(cfg.DataDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: data directory %s", metadata.ErrNotFound, cfg.DataDir)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", metadata.ErrFileAccess, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", metadata.ErrInvalidArgument, cfg.DataDir)
	}

	s := &State{
		game:       cfg.Game,
		dataDir:    cfg.DataDir,
		activeFile: cfg.ActiveFile,
		log:        cfg.Logger,
	}
	if cfg.CacheDir != "" {
		sigs, err := sigcache.Open(cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", metadata.ErrFileAccess, err)
		}
		s.sigs = sigs
	}
	if err := s.Refresh(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Refresh re-reads the active-plugins file. Call it when the install
// may have changed, alongside invalidating any condition cache built on
// this state.
func (s *State) Refresh() error {
	active, err := loadActivePlugins(s.activeFile)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.active = active
	s.mu.Unlock()
	return nil
}

// Close releases the persistent checksum cache, if any. Idempotent.
func (s *State) Close() error {
	if s.sigs == nil {
		return nil
	}
	return s.sigs.Close()
}

// IsPluginName reports whether name looks like a plugin file, with or
// without a trailing ghost marker.
func IsPluginName(name string) bool {
	n := strings.TrimSuffix(strings.ToLower(name), ".ghost")
	return strings.HasSuffix(n, ".esp") || strings.HasSuffix(n, ".esm")
}

// FileExists reports whether the named file is installed. Plugins
// count as installed when only their ghosted form is on disk.
func (s *State) FileExists(rel string) (bool, error) {
	_, err := s.resolveFile(rel)
	if errors.Is(err, metadata.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CRC returns the CRC-32 (IEEE) of the named file's contents, serving
// it from the persistent cache when the file's size and mtime still
// match.
func (s *State) CRC(rel string) (uint32, error) {
	abs, err := s.resolveFile(rel)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return 0, fmt.Errorf("%w: stat %s: %v", metadata.ErrFileAccess, rel, err)
	}

	key := strings.ToLower(rel)
	if s.sigs != nil {
		crc, ok, err := s.sigs.Lookup(key, info.Size(), info.ModTime().UnixNano())
		if err != nil {
			s.log.Debug().Err(err).Str("path", rel).Msg("signature cache lookup failed")
		} else if ok {
			return crc, nil
		}
	}

	crc, err := fileCRC(abs)
	if err != nil {
		return 0, fmt.Errorf("%w: reading %s: %v", metadata.ErrFileAccess, rel, err)
	}
	if s.sigs != nil {
		if err := s.sigs.Store(key, info.Size(), info.ModTime().UnixNano(), crc); err != nil {
			s.log.Debug().Err(err).Str("path", rel).Msg("signature cache store failed")
		}
	}
	return crc, nil
}

// Version returns the version recorded in the named plugin's header,
// or "" for files that record none (non-plugins included).
func (s *State) Version(rel string) (string, error) {
	abs, err := s.resolveFile(rel)
	if err != nil {
		return "", err
	}
	if !IsPluginName(rel) {
		return "", nil
	}
	ver, err := readPluginVersion(abs, s.game)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", metadata.ErrFileAccess, rel, err)
	}
	return ver, nil
}

// IsActive reports whether the named plugin is in the active load
// order.
func (s *State) IsActive(name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active[strings.ToLower(name)], nil
}

// CountMatching returns how many entries of the named directory (the
// data directory when dir is empty) match the pattern. A missing
// directory matches nothing.
func (s *State) CountMatching(dir string, re *regexp.Regexp) (int, error) {
	base := s.dataDir
	if dir != "" {
		abs, err := s.resolve(dir)
		if errors.Is(err, metadata.ErrNotFound) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		base = abs
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		return 0, fmt.Errorf("%w: reading %s: %v", metadata.ErrFileAccess, base, err)
	}
	n := 0
	for _, e := range entries {
		if re.MatchString(e.Name()) {
			n++
		}
	}
	return n, nil
}

// resolveFile resolves rel like resolve, but falls back to the ghosted
// form for plugin files.
func (s *State) resolveFile(rel string) (string, error) {
	abs, err := s.resolve(rel)
	if err == nil || !errors.Is(err, metadata.ErrNotFound) || !IsPluginName(rel) {
		return abs, err
	}
	return s.resolve(rel + ".ghost")
}

// resolve maps a data-relative path to an absolute one, matching each
// component case-insensitively. A single leading parent step reaches
// the game directory itself; anything further out is rejected.
func (s *State) resolve(rel string) (string, error) {
	norm := path.Clean(strings.ReplaceAll(rel, `\`, "/"))
	if path.IsAbs(norm) || (len(norm) > 1 && norm[1] == ':') {
		return "", fmt.Errorf("%w: path %q must be relative", metadata.ErrInvalidArgument, rel)
	}
	base := s.dataDir
	if strings.HasPrefix(norm, "../") {
		base = filepath.Dir(s.dataDir)
		norm = norm[3:]
	}
	if norm == "." {
		return base, nil
	}
	if norm == ".." || strings.HasPrefix(norm, "../") {
		return "", fmt.Errorf("%w: path %q escapes the game directory", metadata.ErrInvalidArgument, rel)
	}

	cur := base
	for _, part := range strings.Split(norm, "/") {
		direct := filepath.Join(cur, part)
		if _, err := os.Lstat(direct); err == nil {
			cur = direct
			continue
		}
		name, err := matchEntry(cur, part)
		if err != nil {
			return "", err
		}
		if name == "" {
			return "", fmt.Errorf("%w: %s", metadata.ErrNotFound, rel)
		}
		cur = filepath.Join(cur, name)
	}
	return cur, nil
}

// matchEntry finds a directory entry equal to part under dir, ignoring
// case. Returns "" when nothing matches.
func matchEntry(dir, part string) (string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", metadata.ErrFileAccess, dir, err)
	}
	for _, e := range entries {
		if strings.EqualFold(e.Name(), part) {
			return e.Name(), nil
		}
	}
	return "", nil
}

func fileCRC(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	h := crc32.NewIEEE()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}
