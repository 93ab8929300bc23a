package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-finance-tracker/model"
	"github.com/goliatone/go-finance-tracker/user"
)

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Register and inspect users",
	}
	cmd.AddCommand(usersRegisterCmd(), usersShowCmd(), usersUpdateCmd())
	return cmd
}

func usersRegisterCmd() *cobra.Command {
	var in user.RegisterInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := app.Users().Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.CountryCode, "country", "", "ISO 3166 alpha-2 country code")
	cmd.Flags().StringVar(&in.BaseCurrencyCode, "currency", "", "ISO 4217 base currency")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func usersShowCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a user by id or by --email",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if email != "" {
				p, err := app.Users().GetByEmail(cmd.Context(), email)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), p)
			}
			if len(args) == 0 {
				return cmd.Usage()
			}
			id, err := parseID("user id", args[0])
			if err != nil {
				return err
			}
			p, err := app.Users().GetProfile(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "look the user up by email")
	return cmd
}

func usersUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the profile or role of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("user id", args[0])
			if err != nil {
				return err
			}

			var p user.Profile
			in := user.ProfileInput{
				CountryCode:      optionalString(cmd, "country"),
				BaseCurrencyCode: optionalString(cmd, "currency"),
			}
			if in.CountryCode != nil || in.BaseCurrencyCode != nil {
				if p, err = app.Users().UpdateProfile(cmd.Context(), id, in); err != nil {
					return err
				}
			}
			if role := optionalString(cmd, "role"); role != nil {
				if p, err = app.Users().UpdateRole(cmd.Context(), id, model.Role(*role)); err != nil {
					return err
				}
			}
			if p.ID == id {
				return printJSON(cmd.OutOrStdout(), p)
			}
			return cmd.Usage()
		},
	}
	cmd.Flags().String("country", "", "ISO 3166 alpha-2 country code")
	cmd.Flags().String("currency", "", "ISO 4217 base currency")
	cmd.Flags().String("role", "", "USER, ADMIN or SUPER_ADMIN")
	return cmd
}
