package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opdemr/opdemr/internal/domain/admin"
)

// passwordEnv supplies the password for user create when --password is not
// given, keeping it out of shell history.
const passwordEnv = "OPD_USER_PASSWORD"

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := admin.CreateUserInput{}
			in.Username, _ = cmd.Flags().GetString("username")
			in.Password, _ = cmd.Flags().GetString("password")
			in.FullName, _ = cmd.Flags().GetString("full-name")
			in.Role, _ = cmd.Flags().GetString("role")
			if in.Password == "" {
				in.Password = os.Getenv(passwordEnv)
			}
			if in.Username == "" || in.Password == "" {
				return fmt.Errorf("--username and --password (or %s) are required", passwordEnv)
			}

			ctx := context.Background()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := newServices(a.db, a.cfg).admin.CreateUser(ctx, in)
			if err != nil {
				return err
			}
			a.log.Info().Int64("id", u.ID).Str("username", u.Username).Str("role", u.Role).Msg("user created")
			return nil
		},
	}
	createCmd.Flags().String("username", "", "Login name")
	createCmd.Flags().String("password", "", "Initial password")
	createCmd.Flags().String("full-name", "", "Display name")
	createCmd.Flags().String("role", "receptionist", "admin, doctor, receptionist, lab, pharmacist or billing")
	cmd.AddCommand(createCmd)

	deactivateCmd := &cobra.Command{
		Use:   "deactivate",
		Short: "Deactivate a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			if username == "" {
				return fmt.Errorf("--username is required")
			}

			ctx := context.Background()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			svc := newServices(a.db, a.cfg).admin
			u, err := svc.GetUserByUsername(ctx, username)
			if err != nil {
				return err
			}
			if _, err := svc.SetActive(ctx, u.ID, false); err != nil {
				return err
			}
			a.log.Info().Str("username", username).Msg("user deactivated")
			return nil
		},
	}
	deactivateCmd.Flags().String("username", "", "Login name")
	cmd.AddCommand(deactivateCmd)

	return cmd
}
