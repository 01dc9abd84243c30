package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// MigrateCmd creates the migrate command
func MigrateCmd(app *AppContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := app.Database()
			if err != nil {
				return err
			}

			var names []string
			if dryRun {
				names, err = database.PendingMigrations(app.Ctx)
			} else {
				names, err = database.RunMigrations(app.Ctx)
			}
			if err != nil {
				return err
			}

			if len(names) == 0 {
				fmt.Println("\nDatabase is up to date.")
				return nil
			}

			if dryRun {
				fmt.Printf("\n%d pending migration(s):\n", len(names))
			} else {
				fmt.Printf("\n✓ Applied %d migration(s):\n", len(names))
			}
			for _, name := range names {
				fmt.Printf("  %s\n", name)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List pending migrations without applying them")
	return cmd
}
