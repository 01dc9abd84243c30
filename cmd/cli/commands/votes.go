package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/dispatch-vote/pkg/core/services"
)

// VotesCmd creates the votes command group
func VotesCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "votes",
		Short: "Work with submitted votes",
	}
	cmd.AddCommand(exportVotesCmd(app))
	return cmd
}

func exportVotesCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <batch_id>",
		Short: "Write every vote in a batch to a new tab of the export spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := app.Database()
			if err != nil {
				return err
			}
			sheets, err := app.SheetsClient()
			if err != nil {
				return err
			}

			result, err := services.ExportVotes(app.Ctx, database, sheets, app.Cfg, app.Logger, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Exported %d vote(s) to tab %q\n\n", result.Votes, result.Tab)
			return nil
		},
	}
}
