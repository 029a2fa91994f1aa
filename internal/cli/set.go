package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/raehik/loot-api/pkg/metadata"
)

var setFlags struct {
	file string
}

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set [name]",
		Short: "Replace a plugin's userlist entry",
		Long: `Set replaces the userlist entry for a plugin with metadata read from
--file or standard input: a single YAML mapping in the same form as an
element of a list document's plugins sequence. When a name argument is
given it must match the document's name. The userlist file is
rewritten.

Example:
  echo 'name: Foo.esp
  tag: [Relev]' | lootdb set`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSet,
	}
	cmd.Flags().StringVar(&setFlags.file, "file", "", "metadata file (default: standard input)")
	return cmd
}

func runSet(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()
	if s.userlistPath == "" {
		return fmt.Errorf("%w: no userlist configured", metadata.ErrInvalidArgument)
	}

	data, err := readInput(cmd, setFlags.file)
	if err != nil {
		return err
	}
	var md metadata.PluginMetadata
	if err := yaml.Unmarshal(data, &md); err != nil {
		return fmt.Errorf("%w: parsing metadata: %v", metadata.ErrMalformed, err)
	}
	if len(args) == 1 && !strings.EqualFold(args[0], md.Name) {
		return fmt.Errorf("%w: document names %s, not %s", metadata.ErrInvalidArgument, md.Name, args[0])
	}

	if err := s.db.SetPluginUserMetadata(md); err != nil {
		return err
	}
	if err := s.db.WriteUserMetadata(s.userlistPath, true); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Userlist entry for %s written to %s\n", md.Name, s.userlistPath)
	return nil
}
