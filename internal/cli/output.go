package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/raehik/loot-api/pkg/metadata"
)

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func printYAML(cmd *cobra.Command, v any) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		enc.Close()
		return fmt.Errorf("marshaling output: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), buf.String())
	return nil
}

// readInput reads the named file, or standard input when path is empty.
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("%w: reading standard input: %v", metadata.ErrFileAccess, err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", metadata.ErrFileAccess, path, err)
	}
	return data, nil
}
