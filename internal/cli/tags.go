package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List the known Bash Tag names",
		Long: "Tags prints the union of the tag names declared or used by the\n" +
			"loaded metadata lists, sorted and deduplicated.",
		Args: cobra.NoArgs,
		RunE: runTags,
	}
}

func runTags(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	tags := s.db.KnownBashTags()
	if flags.jsonMode {
		return printJSON(cmd, tags)
	}
	for _, tag := range tags {
		fmt.Fprintln(cmd.OutOrStdout(), tag)
	}
	return nil
}
