package gamestate

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/raehik/loot-api/pkg/metadata"
)

// loadActivePlugins reads an active-plugins file: one plugin name per
// line, # starts a comment, and a leading asterisk (used by formats
// that list inactive plugins too) is stripped. A missing file or an
// empty path means nothing is active.
func loadActivePlugins(path string) (map[string]bool, error) {
	active := make(map[string]bool)
	if path == "" {
		return active, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return active, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", metadata.ErrFileAccess, path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "*")
		active[strings.ToLower(line)] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", metadata.ErrFileAccess, path, err)
	}
	return active, nil
}
