package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/dispatch-vote/pkg/core/services"
)

// BatchCmd creates the batch command group
func BatchCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Manage voting batches",
	}
	cmd.AddCommand(createBatchCmd(app))
	return cmd
}

func createBatchCmd(app *AppContext) *cobra.Command {
	var rule string

	cmd := &cobra.Command{
		Use:   "create <start_date>",
		Short: "Create a voting batch covering the forecast dates produced by an RRULE",
		Long: `Create a voting batch starting on <start_date> (YYYY-MM-DD).

The forecast window is expanded from --rrule, for example "FREQ=DAILY;COUNT=3;BYDAY=MO,TU,WE,TH,FR".
Without --rrule, batches.defaultRRule is used, and without that the batch covers the start date only.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := app.Database()
			if err != nil {
				return err
			}

			result, err := services.CreateBatch(app.Ctx, database, app.Cfg, app.Logger, args[0], rule)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Batch created successfully!\n\n")
			fmt.Printf("Batch ID:   %s\n", result.Batch.ID)
			fmt.Printf("Start Date: %s\n", result.Batch.StartDate)
			fmt.Printf("End Date:   %s\n\n", result.Batch.EndDate)

			fmt.Printf("Forecast Dates:\n")
			for i, date := range result.ForecastDates {
				fmt.Printf("  %2d. %s\n", i+1, date.Format("2006-01-02 (Monday)"))
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVar(&rule, "rrule", "", "RRULE describing the forecast dates")
	return cmd
}
