package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raehik/loot-api/pkg/metadata"
)

var pluginFlags struct {
	eval     bool
	noUser   bool
	userOnly bool
}

func newPluginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin <name>",
		Short: "Show the metadata that applies to a plugin",
		Long: `Plugin resolves the masterlist entry for the named plugin (its exact
entry plus any matching regex entries) merged with the userlist's,
unless --no-user is given. With --user-only only the userlist is
consulted.

Examples:
  lootdb plugin "Unofficial Skyrim Patch.esp"
  lootdb plugin --eval --json Foo.esp`,
		Args: cobra.ExactArgs(1),
		RunE: runPlugin,
	}
	cmd.Flags().BoolVar(&pluginFlags.eval, "eval", false, "evaluate conditions against the installed game")
	cmd.Flags().BoolVar(&pluginFlags.noUser, "no-user", false, "ignore userlist metadata")
	cmd.Flags().BoolVar(&pluginFlags.userOnly, "user-only", false, "resolve from the userlist only")
	return cmd
}

func runPlugin(cmd *cobra.Command, args []string) error {
	if pluginFlags.noUser && pluginFlags.userOnly {
		return fmt.Errorf("%w: --no-user and --user-only are mutually exclusive", metadata.ErrInvalidArgument)
	}
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	var md metadata.PluginMetadata
	if pluginFlags.userOnly {
		md, err = s.db.GetPluginUserMetadata(args[0], pluginFlags.eval)
	} else {
		md, err = s.db.GetPluginMetadata(args[0], !pluginFlags.noUser, pluginFlags.eval)
	}
	if err != nil {
		return err
	}

	if flags.jsonMode {
		return printJSON(cmd, md)
	}
	if md.HasNameOnly() {
		fmt.Fprintf(cmd.OutOrStdout(), "No metadata for %s.\n", md.Name)
		return nil
	}
	return printYAML(cmd, md)
}
