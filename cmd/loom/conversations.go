package main

import (
	"github.com/spf13/cobra"
)

func newConversationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "Manage stored conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conversations, err := sqliteStore.ListConversations(cmd.Context(), repoID)
			if err != nil {
				return err
			}

			if len(conversations) == 0 {
				cmd.Println("no conversations")
				return nil
			}
			for _, c := range conversations {
				title := c.Title
				if title == "" {
					title = "(untitled)"
				}
				cmd.Printf("%s  %s  %s\n", c.ID, c.UpdatedAt.Format("2006-01-02 15:04"), title)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print a conversation's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			messages, err := sqliteStore.LoadMessages(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, msg := range messages {
				cmd.Printf("%s: %s\n", msg.Role, msg.Content)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sqliteStore.DeleteConversation(cmd.Context(), args[0])
		},
	})

	return cmd
}
