package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newAskCommand() *cobra.Command {
	var (
		conversationID string
		paths          []string
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question over the assembled repository context",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			result, err := loomEngine.Ask(cmd.Context(), repoID, conversationID, paths, question)
			if err != nil {
				return err
			}

			cmd.Println(result.Answer)
			if result.Title != "" {
				cmd.PrintErrf("conversation %s (%s)\n", result.ConversationID, result.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "continue an existing conversation")
	cmd.Flags().StringSliceVarP(&paths, "path", "p", nil, "file paths to pin into the context")

	return cmd
}
