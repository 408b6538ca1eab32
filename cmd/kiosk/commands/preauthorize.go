package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/support-kiosk/pkg/core/services"
	"github.com/jakechorley/support-kiosk/pkg/db"
)

// PreauthorizeCmd creates the preauthorize command
func PreauthorizeCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preauthorize <email> <name> <role>",
		Short: "Grant a dashboard role to an existing account",
		Long:  `Grants technician or leadership access. Use this to seed the first leadership account.`,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := newIdentityClient(app)
			if err != nil {
				return err
			}

			user, err := services.PreauthorizeUser(app.Ctx, app.Database, identity, app.Logger, args[0], args[1], db.Role(args[2]))
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ User preauthorized!\n\n")
			fmt.Printf("UID:   %s\n", user.ID)
			fmt.Printf("Email: %s\n", user.Email)
			fmt.Printf("Role:  %s\n\n", user.Role)

			return nil
		},
	}
}
