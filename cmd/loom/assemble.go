package main

import (
	"github.com/spf13/cobra"
)

func newAssembleCommand() *cobra.Command {
	var showDrops bool

	cmd := &cobra.Command{
		Use:   "assemble [paths...]",
		Short: "Assemble a context payload for the given paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := loomEngine.BuildContext(cmd.Context(), repoID, args, loomEngine.Budget())
			if err != nil {
				return err
			}

			cmd.Println(result.Payload)

			if showDrops {
				for path, rep := range result.SideTable {
					if rep.Retained() {
						continue
					}
					cmd.PrintErrf("dropped %s: %s\n", path, rep.DropReason)
				}
			}
			cmd.PrintErrf("tokens used: %d of %d available\n", result.TokensUsed, loomEngine.Budget().Available())
			return nil
		},
	}

	cmd.Flags().BoolVar(&showDrops, "show-drops", false, "list dropped items on stderr")

	return cmd
}
