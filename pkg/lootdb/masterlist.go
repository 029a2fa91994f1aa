package lootdb

import (
	"context"
	"fmt"

	"github.com/raehik/loot-api/internal/paths"
	"github.com/raehik/loot-api/pkg/metadata"
)

// UpdateMasterlist fetches remoteURL and replaces the masterlist file
// at path when the remote content differs. On a change the new file is
// loaded and swapped into the database; otherwise the loaded lists are
// untouched. Returns whether the local masterlist changed.
func (db *Database) UpdateMasterlist(ctx context.Context, path, remoteURL, remoteRef string) (bool, error) {
	if path == "" || remoteURL == "" {
		return false, fmt.Errorf("%w: masterlist path and URL must not be empty", metadata.ErrInvalidArgument)
	}
	if err := paths.CheckParentDir(path); err != nil {
		return false, err
	}

	changed, err := db.updater.Update(ctx, path, remoteURL, remoteRef)
	if err != nil || !changed {
		return false, err
	}

	fresh := metadata.NewList()
	if err := fresh.Load(path); err != nil {
		return true, fmt.Errorf("reloading updated masterlist: %w", err)
	}
	db.masterlist = fresh
	db.log.Info().Str("path", path).Msg("masterlist replaced")
	return true, nil
}

// GetMasterlistRevision reports the recorded revision of the masterlist
// file at path. short truncates the revision ID for display.
func (db *Database) GetMasterlistRevision(path string, short bool) (metadata.RevisionInfo, error) {
	return db.updater.Revision(path, short)
}

// IsLatestMasterlist reports whether the masterlist at path matches
// what the remote currently serves for ref.
func (db *Database) IsLatestMasterlist(ctx context.Context, path, ref string) (bool, error) {
	return db.updater.IsLatest(ctx, path, ref)
}

// WriteMinimalList writes a reduced form of the masterlist to path:
// per plugin, only the name, tag suggestions and cleaning data, and
// only for plugins that have either. The path contract matches
// WriteUserMetadata.
func (db *Database) WriteMinimalList(path string, overwrite bool) error {
	if err := checkWritable(path, overwrite); err != nil {
		return err
	}
	return db.masterlist.Minimal().Save(path)
}
