package lootdb

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/raehik/loot-api/internal/paths"
	"github.com/raehik/loot-api/internal/update"
	"github.com/raehik/loot-api/pkg/condition"
	"github.com/raehik/loot-api/pkg/gamestate"
	"github.com/raehik/loot-api/pkg/metadata"
)

// Updater keeps a local masterlist in sync with a remote one. The
// mechanism is opaque to the database; the default implementation
// fetches over HTTP.
type Updater interface {
	Update(ctx context.Context, path, remoteURL, remoteRef string) (bool, error)
	Revision(path string, short bool) (metadata.RevisionInfo, error)
	IsLatest(ctx context.Context, path, ref string) (bool, error)
}

// Config assembles a Database. Either provide a ready evaluator or the
// game state to build one from; with neither, the database still serves
// metadata but refuses condition evaluation.
type Config struct {
	// Evaluator is used as-is when set.
	Evaluator *condition.Evaluator

	// State and Cache build an evaluator when Evaluator is nil. A nil
	// Cache means a fresh one.
	State *gamestate.State
	Cache *condition.Cache

	// Updater for masterlist updates. nil selects the HTTP updater.
	Updater Updater

	Logger zerolog.Logger
}

// Database holds a masterlist and a userlist and answers metadata
// queries over their merged view.
type Database struct {
	masterlist *metadata.List
	userlist   *metadata.List
	eval       *condition.Evaluator
	updater    Updater
	log        zerolog.Logger
}

// New builds a Database from cfg. Setting both Evaluator and State is
// rejected as ambiguous.
func New(cfg Config) (*Database, error) {
	if cfg.Evaluator != nil && cfg.State != nil {
		return nil, fmt.Errorf("%w: provide either an evaluator or game state, not both", metadata.ErrInvalidArgument)
	}

	log := cfg.Logger.With().Str("component", "lootdb").Logger()

	eval := cfg.Evaluator
	if eval == nil && cfg.State != nil {
		cache := cfg.Cache
		if cache == nil {
			cache = condition.NewCache()
		}
		eval = condition.NewEvaluator(cfg.State, cache, log)
	}

	updater := cfg.Updater
	if updater == nil {
		updater = update.New(log)
	}

	return &Database{
		masterlist: metadata.NewList(),
		userlist:   metadata.NewList(),
		eval:       eval,
		updater:    updater,
		log:        log,
	}, nil
}

// LoadLists replaces the database's lists with the contents of the
// given files. An empty path yields an empty list; a non-empty path
// must exist. Neither list changes unless both load.
func (db *Database) LoadLists(masterlistPath, userlistPath string) error {
	master := metadata.NewList()
	if masterlistPath != "" {
		if err := master.Load(masterlistPath); err != nil {
			return loadErr("masterlist", masterlistPath, err)
		}
	}
	user := metadata.NewList()
	if userlistPath != "" {
		if err := user.Load(userlistPath); err != nil {
			return loadErr("userlist", userlistPath, err)
		}
	}

	db.masterlist = master
	db.userlist = user
	db.log.Debug().
		Int("masterlist_plugins", len(master.Plugins())).
		Int("userlist_plugins", len(user.Plugins())).
		Msg("lists loaded")
	return nil
}

// loadErr maps a missing list file to ErrFileAccess: the caller named
// the path, so its absence is an access failure, not a lookup miss.
func loadErr(kind, path string, err error) error {
	if errors.Is(err, metadata.ErrNotFound) {
		return fmt.Errorf("%w: %s %s does not exist", metadata.ErrFileAccess, kind, path)
	}
	return fmt.Errorf("loading %s %s: %w", kind, path, err)
}

// WriteUserMetadata writes the userlist to path. The parent directory
// must exist; an existing file is only replaced when overwrite is set.
func (db *Database) WriteUserMetadata(path string, overwrite bool) error {
	if err := checkWritable(path, overwrite); err != nil {
		return err
	}
	return db.userlist.Save(path)
}

func checkWritable(path string, overwrite bool) error {
	if path == "" {
		return fmt.Errorf("%w: output path must not be empty", metadata.ErrInvalidArgument)
	}
	if err := paths.CheckParentDir(path); err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s already exists", metadata.ErrFileAccess, path)
		}
	}
	return nil
}

func (db *Database) evaluator() (*condition.Evaluator, error) {
	if db.eval == nil {
		return nil, fmt.Errorf("%w: condition evaluation requires game state", metadata.ErrInvalidArgument)
	}
	return db.eval, nil
}
