package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var messagesFlags struct {
	eval bool
}

func newMessagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Print the general messages from the loaded lists",
		Args:  cobra.NoArgs,
		RunE:  runMessages,
	}
	cmd.Flags().BoolVar(&messagesFlags.eval, "eval", false, "drop messages whose condition does not hold")
	return cmd
}

func runMessages(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	msgs, err := s.db.GetGeneralMessages(messagesFlags.eval)
	if err != nil {
		return err
	}
	if flags.jsonMode {
		return printJSON(cmd, msgs)
	}
	for _, msg := range msgs {
		content, ok := msg.GetContent(s.language)
		if !ok {
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", msg.Type, content.Text)
	}
	return nil
}
