package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/dispatch-vote/pkg/core/services"
)

// TokenCmd creates the token command group
func TokenCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and revoke voting links",
	}
	cmd.AddCommand(issueTokenCmd(app))
	cmd.AddCommand(revokeTokenCmd(app))
	return cmd
}

func issueTokenCmd(app *AppContext) *cobra.Command {
	var email bool

	cmd := &cobra.Command{
		Use:   "issue <batch_id> <person_id>",
		Short: "Mint a voting link for a person",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := app.Database()
			if err != nil {
				return err
			}

			var mailer services.Mailer
			if email {
				gmail, err := app.GmailClient()
				if err != nil {
					return err
				}
				mailer = gmail
			}

			issued, err := services.IssueToken(app.Ctx, database, mailer, app.Cfg, app.Logger, args[0], args[1])
			if issued == nil {
				return err
			}

			fmt.Printf("\n✓ Voting link issued for %s\n\n", issued.Person.DisplayName)
			fmt.Printf("Token ID: %s\n", issued.TokenID)
			fmt.Printf("Expires:  %s\n", issued.ExpiresAt.Format("2006-01-02 15:04"))
			fmt.Printf("Link:     %s\n\n", issued.Link)
			if issued.Emailed {
				fmt.Printf("Emailed to %s\n\n", issued.Person.Email)
			}

			// the link above is still usable when only the email failed
			return err
		},
	}

	cmd.Flags().BoolVar(&email, "email", false, "Email the link to the person")
	return cmd
}

func revokeTokenCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <token_id>",
		Short: "Revoke a voting link immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := app.Database()
			if err != nil {
				return err
			}

			if err := services.RevokeToken(app.Ctx, database, app.Logger, args[0]); err != nil {
				return err
			}

			fmt.Printf("\n✓ Token %s revoked\n\n", args[0])
			return nil
		},
	}
}
