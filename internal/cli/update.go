package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raehik/loot-api/pkg/metadata"
)

var updateFlags struct {
	url string
	ref string
}

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the masterlist from its remote",
		Long: "Update fetches the configured remote and replaces the local\n" +
			"masterlist when the served content differs from it.",
		Args: cobra.NoArgs,
		RunE: runUpdate,
	}
	cmd.Flags().StringVar(&updateFlags.url, "url", "", "remote URL (default: remote_url from config)")
	cmd.Flags().StringVar(&updateFlags.ref, "ref", "", "remote ref (default: remote_ref from config)")
	return cmd
}

func runUpdate(cmd *cobra.Command, args []string) error {
	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	url := updateFlags.url
	if url == "" {
		url = s.remoteURL
	}
	ref := updateFlags.ref
	if ref == "" {
		ref = s.remoteRef
	}
	if s.masterlistPath == "" || url == "" {
		return fmt.Errorf("%w: a masterlist path and a remote URL are required", metadata.ErrInvalidArgument)
	}

	changed, err := s.db.UpdateMasterlist(cmd.Context(), s.masterlistPath, url, ref)
	if err != nil {
		return err
	}
	if flags.jsonMode {
		return printJSON(cmd, struct {
			Changed bool `json:"changed"`
		}{changed})
	}
	if changed {
		fmt.Fprintln(cmd.OutOrStdout(), "Masterlist updated.")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Masterlist already up to date.")
	}
	return nil
}
