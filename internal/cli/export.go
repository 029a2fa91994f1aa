package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var exportFlags struct {
	out   string
	force bool
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the loaded userlist to a file",
		Args:  cobra.NoArgs,
		RunE:  runExport,
	}
	cmd.Flags().StringVar(&exportFlags.out, "out", "", "output path (required)")
	cmd.Flags().BoolVar(&exportFlags.force, "force", false, "replace an existing file")
	cmd.MarkFlagRequired("out")
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.db.WriteUserMetadata(exportFlags.out, exportFlags.force); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Userlist written to %s\n", exportFlags.out)
	return nil
}
