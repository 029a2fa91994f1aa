package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raehik/loot-api/pkg/lootdb"
)

const modulePath = "github.com/raehik/loot-api"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the lootdb version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "lootdb v%s\nmodule: %s\n", lootdb.Version, modulePath)
			return nil
		},
	}
}
