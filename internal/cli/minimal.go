package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var minimalFlags struct {
	out   string
	force bool
}

func newMinimalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "minimal",
		Short: "Write a minimal masterlist to a file",
		Long: "Minimal reduces the loaded masterlist to each entry's tags and dirty\n" +
			"info and writes the result. Entries with neither are dropped.",
		Args: cobra.NoArgs,
		RunE: runMinimal,
	}
	cmd.Flags().StringVar(&minimalFlags.out, "out", "", "output path (required)")
	cmd.Flags().BoolVar(&minimalFlags.force, "force", false, "replace an existing file")
	cmd.MarkFlagRequired("out")
	return cmd
}

func runMinimal(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.db.WriteMinimalList(minimalFlags.out, minimalFlags.force); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Minimal list written to %s\n", minimalFlags.out)
	return nil
}
