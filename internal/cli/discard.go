package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raehik/loot-api/pkg/metadata"
)

var discardFlags struct {
	all bool
}

func newDiscardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discard [name]",
		Short: "Remove userlist metadata",
		Long: "Discard removes the userlist entry whose name matches exactly, or\n" +
			"every entry with --all. The userlist file is rewritten.",
		Args: cobra.MaximumNArgs(1),
		RunE: runDiscard,
	}
	cmd.Flags().BoolVar(&discardFlags.all, "all", false, "discard every userlist entry")
	return cmd
}

func runDiscard(cmd *cobra.Command, args []string) error {
	if discardFlags.all == (len(args) == 1) {
		return fmt.Errorf("%w: name a plugin or pass --all", metadata.ErrInvalidArgument)
	}
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()
	if s.userlistPath == "" {
		return fmt.Errorf("%w: no userlist configured", metadata.ErrInvalidArgument)
	}

	if discardFlags.all {
		s.db.DiscardAllUserMetadata()
	} else {
		s.db.DiscardPluginUserMetadata(args[0])
	}
	if err := s.db.WriteUserMetadata(s.userlistPath, true); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Userlist written to %s\n", s.userlistPath)
	return nil
}
