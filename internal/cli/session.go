package cli

import (
	"github.com/raehik/loot-api/internal/paths"
	"github.com/raehik/loot-api/pkg/gamestate"
	"github.com/raehik/loot-api/pkg/logging"
	"github.com/raehik/loot-api/pkg/lootdb"
)

// session bundles the database, its optional game state and the
// settings resolved from flags, environment and config file.
type session struct {
	db    *lootdb.Database
	state *gamestate.State

	masterlistPath string
	userlistPath   string
	remoteURL      string
	remoteRef      string
	language       string
}

// openSession builds the database from flags and configuration. The
// game state is attached only when a game directory is configured, so
// metadata-only commands work without one. With withLists, the
// configured metadata lists are loaded.
func openSession(withLists bool) (*session, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return nil, err
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return nil, err
	}

	s := &session{
		masterlistPath: setting(flags.masterlist, v, cfgKeyMasterlist),
		userlistPath:   setting(flags.userlist, v, cfgKeyUserlist),
		remoteURL:      v.GetString(cfgKeyRemoteURL),
		remoteRef:      v.GetString(cfgKeyRemoteRef),
		language:       setting(flags.language, v, cfgKeyLanguage),
	}

	var state *gamestate.State
	if gameDir := setting(flags.gameDir, v, cfgKeyGameDir); gameDir != "" {
		game, err := gamestate.ParseGameType(setting(flags.game, v, cfgKeyGame))
		if err != nil {
			return nil, err
		}
		cacheDir, err := paths.ResolveCacheDir(flags.cacheDir, v.GetString(cfgKeyCacheDir))
		if err != nil {
			return nil, err
		}
		state, err = gamestate.Open(gamestate.Config{
			Game:       game,
			DataDir:    gameDir,
			ActiveFile: setting(flags.activePlugins, v, cfgKeyActivePlugins),
			CacheDir:   cacheDir,
			Logger:     logging.Component("gamestate"),
		})
		if err != nil {
			return nil, err
		}
	}

	db, err := lootdb.New(lootdb.Config{
		State:  state,
		Logger: logging.Component("lootdb"),
	})
	if err != nil {
		if state != nil {
			state.Close()
		}
		return nil, err
	}
	s.state = state
	s.db = db

	if withLists {
		if err := s.db.LoadLists(s.masterlistPath, s.userlistPath); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close releases the game state, if any.
func (s *session) Close() {
	if s.state != nil {
		s.state.Close()
	}
}
