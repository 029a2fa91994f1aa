package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/raehik/loot-api/pkg/metadata"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFile     = "config.yaml"

	cfgKeyGame          = "game"
	cfgKeyGameDir       = "game_dir"
	cfgKeyActivePlugins = "active_plugins"
	cfgKeyMasterlist    = "masterlist"
	cfgKeyUserlist      = "userlist"
	cfgKeyRemoteURL     = "remote_url"
	cfgKeyRemoteRef     = "remote_ref"
	cfgKeyLanguage      = "language"
	cfgKeyCacheDir      = "cache_dir"

	defaultGame = "tes5"
)

// defaultConfigYAML is written by "lootdb init" as a starting point.
const defaultConfigYAML = `# lootdb configuration.
# Every key can also be set through a LOOTDB_* environment variable,
# e.g. LOOTDB_GAME_DIR, and overridden by the matching command flag.

# Game type: tes4, tes5, fo3 or fonv.
game: tes5

# Game data directory (where the plugins live). Required for
# condition evaluation and plugin inspection.
# game_dir: /games/skyrim/Data

# Active plugins file. Optional.
# active_plugins: /games/skyrim/plugins.txt

# Metadata list locations.
# masterlist: /home/user/.config/lootdb/masterlist.yaml
# userlist: /home/user/.config/lootdb/userlist.yaml

# Masterlist remote used by "lootdb update".
# remote_url: https://example.com/masterlist.yaml
# remote_ref: v0.26

# Preferred message language.
language: en

# Cache directory override.
# cache_dir: /home/user/.cache/lootdb
`

// loadConfig reads config.yaml from configDir. A missing file is not an
// error; flags and environment variables still apply.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyGame, defaultGame)
	v.SetDefault(cfgKeyLanguage, metadata.DefaultLanguage)

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("LOOTDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("%w: reading config: %v", metadata.ErrMalformed, err)
	}
	return v, nil
}

// setting returns the flag value when set, the configured value otherwise.
func setting(flagValue string, v *viper.Viper, key string) string {
	if flagValue != "" {
		return flagValue
	}
	return v.GetString(key)
}
