// Package cli implements the lootdb command-line interface.
package cli

import (
	"errors"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/raehik/loot-api/pkg/logging"
	"github.com/raehik/loot-api/pkg/metadata"
)

// Exit codes: 0 success, 1 user error (bad arguments, unknown names),
// 2 system error (I/O failures, malformed documents, remote errors).
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir     string
	game          string
	gameDir       string
	activePlugins string
	masterlist    string
	userlist      string
	cacheDir      string
	language      string
	logLevel      string
	verbose       bool
	jsonMode      bool
}

var flags rootFlags

// NewRootCmd creates the top-level "lootdb" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lootdb",
		Short: "Query and maintain plugin metadata lists",
		Long: "Lootdb resolves plugin metadata from a masterlist and a userlist,\n" +
			"evaluates metadata conditions against an installed game, and keeps\n" +
			"the masterlist up to date.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:      true,
		PersistentPreRunE: setUpLogging,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.game, "game", "", "game type: tes4, tes5, fo3 or fonv (default: tes5)")
	root.PersistentFlags().StringVar(&flags.gameDir, "game-dir", "", "game data directory")
	root.PersistentFlags().StringVar(&flags.activePlugins, "active-plugins", "", "active plugins file")
	root.PersistentFlags().StringVar(&flags.masterlist, "masterlist", "", "masterlist path")
	root.PersistentFlags().StringVar(&flags.userlist, "userlist", "", "userlist path")
	root.PersistentFlags().StringVar(&flags.cacheDir, "cache-dir", "", "cache directory (default: platform cache dir)")
	root.PersistentFlags().StringVar(&flags.language, "language", "", "preferred message language (default: en)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level with --verbose: trace, debug, info, warn, error")
	root.PersistentFlags().BoolVar(&flags.verbose, "verbose", false, "log to stderr")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newTagsCmd())
	root.AddCommand(newMessagesCmd())
	root.AddCommand(newPluginCmd())
	root.AddCommand(newSetCmd())
	root.AddCommand(newDiscardCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newMinimalCmd())
	root.AddCommand(newUpdateCmd())
	root.AddCommand(newRevisionCmd())

	return root
}

// setUpLogging routes module logging to stderr when --verbose is given.
func setUpLogging(cmd *cobra.Command, args []string) error {
	if !flags.verbose {
		return nil
	}
	level, err := logging.ParseLevel(flags.logLevel)
	if err != nil {
		return err
	}
	logging.SetLevel(level)
	console := zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}
	logging.SetCallback(func(_ logging.Level, line string) {
		console.Write([]byte(line))
	})
	return nil
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode classifies an error: I/O and document failures are system
// errors, everything else is on the user.
func exitCode(err error) int {
	if errors.Is(err, metadata.ErrFileAccess) || errors.Is(err, metadata.ErrMalformed) {
		return exitSysError
	}
	return exitUserError
}
