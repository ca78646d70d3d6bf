package main

import (
	"fmt"

	"github.com/monocle-dev/tracker/internal/services"
	"github.com/spf13/cobra"
)

func (a *app) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(a.userCreateCmd())
	return cmd
}

func (a *app) userCreateCmd() *cobra.Command {
	var input services.CreateUserCommand

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an internal account, typically the first administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(input.Password) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}

			conn, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			svc := services.New(conn, services.Options{Logger: a.log})

			user, err := svc.Bootstrap(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %d <%s>\n", user.ID, user.Email)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&input.Email, "email", "", "login email")
	flags.StringVar(&input.Fullname, "fullname", "", "display name")
	flags.StringVar(&input.Password, "password", "", "initial password")
	flags.BoolVar(&input.Admin, "admin", false, "grant administrator rights")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("fullname")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
