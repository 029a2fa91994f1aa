package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raehik/loot-api/pkg/metadata"
)

var revisionFlags struct {
	short  bool
	latest bool
}

func newRevisionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revision",
		Short: "Show the masterlist's recorded revision",
		Args:  cobra.NoArgs,
		RunE:  runRevision,
	}
	cmd.Flags().BoolVar(&revisionFlags.short, "short", false, "truncate the revision ID")
	cmd.Flags().BoolVar(&revisionFlags.latest, "check-latest", false, "also ask the remote whether this revision is current")
	return cmd
}

func runRevision(cmd *cobra.Command, args []string) error {
	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.Close()
	if s.masterlistPath == "" {
		return fmt.Errorf("%w: no masterlist configured", metadata.ErrInvalidArgument)
	}

	rev, err := s.db.GetMasterlistRevision(s.masterlistPath, revisionFlags.short)
	if err != nil {
		return err
	}
	var latest *bool
	if revisionFlags.latest {
		ok, err := s.db.IsLatestMasterlist(cmd.Context(), s.masterlistPath, s.remoteRef)
		if err != nil {
			return err
		}
		latest = &ok
	}

	if flags.jsonMode {
		return printJSON(cmd, struct {
			metadata.RevisionInfo
			Latest *bool `json:"latest,omitempty"`
		}{rev, latest})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "revision: %s\ndate: %s\nmodified: %t\n", rev.ID, rev.Date, rev.Modified)
	if latest != nil {
		fmt.Fprintf(out, "latest: %t\n", *latest)
	}
	return nil
}
