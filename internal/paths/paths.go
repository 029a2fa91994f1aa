// Package paths resolves configuration and cache directory locations.
package paths

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/raehik/loot-api/pkg/metadata"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "LOOTDB_CONFIG_DIR"
	EnvCacheDir  = "LOOTDB_CACHE_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	userCacheDir  func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	userCacheDir:  os.UserCacheDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/lootdb (fallback ~/.config/lootdb)
// macOS:   ~/Library/Application Support/lootdb
// Windows: %APPDATA%/lootdb
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "lootdb"), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "lootdb"), nil
	default:
		// macOS and Windows use os.UserConfigDir which returns
		// ~/Library/Application Support on macOS and %APPDATA% on Windows.
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "lootdb"), nil
	}
}

// DefaultCacheDir returns the platform-specific default cache directory,
// used for the plugin checksum cache and downloaded masterlists.
//
// Linux:   $XDG_CACHE_HOME/lootdb (fallback ~/.cache/lootdb)
// macOS:   ~/Library/Caches/lootdb
// Windows: %LocalAppData%/lootdb
func DefaultCacheDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			return filepath.Join(xdg, "lootdb"), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".cache", "lootdb"), nil
	default:
		dir, err := platformDir.userCacheDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "lootdb"), nil
	}
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > LOOTDB_CONFIG_DIR env > DefaultConfigDir().
//
// If flag is non-empty it wins. Otherwise the LOOTDB_CONFIG_DIR environment
// variable is checked. If neither is set, the platform default is returned.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveCacheDir returns the cache directory following the precedence chain:
// flag > configYAMLValue > LOOTDB_CACHE_DIR env > DefaultCacheDir().
func ResolveCacheDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvCacheDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultCacheDir()
}

// CheckParentDir verifies that the directory containing path exists, so
// that a subsequent write fails early with a clear error instead of
// half-way through.
func CheckParentDir(path string) error {
	parent := filepath.Dir(path)
	info, err := os.Stat(parent)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: parent directory %s does not exist", metadata.ErrInvalidArgument, parent)
	}
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", metadata.ErrFileAccess, parent, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", metadata.ErrInvalidArgument, parent)
	}
	return nil
}
