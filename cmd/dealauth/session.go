package main

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/dealAuth"
	"github.com/spf13/cobra"
)

type credentialFlags struct {
	email    string
	password string
	role     string
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "account email")
	cmd.Flags().StringVar(&f.password, "password", "", "account password (or DEALAUTH_PASSWORD)")
	cmd.Flags().StringVar(&f.role, "role", dealAuth.RoleCustomer.String(), "account type: customer or partner")
	_ = cmd.MarkFlagRequired("email")
}

func (f *credentialFlags) resolve(a *app) (dealAuth.Role, error) {
	if f.password == "" {
		if v, ok := a.lookupEnv("DEALAUTH_PASSWORD"); ok {
			f.password = v
		}
	}
	role, err := dealAuth.ParseRole(f.role)
	if err != nil {
		return 0, fmt.Errorf("--role: %w", err)
	}
	return role, nil
}

func newCheckEmailCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check-email EMAIL",
		Short: "Report whether an account exists for EMAIL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, done, err := a.manager(cmd)
			if err != nil {
				return err
			}
			defer done()

			exists, err := m.CheckEmailExists(cmd.Context(), args[0])
			if err != nil {
				return userError(cmd, err)
			}
			if exists {
				fmt.Fprintln(cmd.OutOrStdout(), "registered")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "not registered")
			}
			return nil
		},
	}
}

func newSignInCmd(a *app) *cobra.Command {
	var f credentialFlags
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in as a customer or partner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			role, err := f.resolve(a)
			if err != nil {
				return err
			}
			m, done, err := a.manager(cmd)
			if err != nil {
				return err
			}
			defer done()

			if _, err := m.SignIn(cmd.Context(), f.email, f.password, role); err != nil {
				return userError(cmd, err)
			}
			printState(cmd, m.State())
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newSignUpCmd(a *app) *cobra.Command {
	var (
		f       credentialFlags
		confirm string
	)
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and its profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			role, err := f.resolve(a)
			if err != nil {
				return err
			}
			m, done, err := a.manager(cmd)
			if err != nil {
				return err
			}
			defer done()

			if cmd.Flags().Changed("confirm") {
				if err := m.ConfirmPasswords(f.password, confirm); err != nil {
					return userError(cmd, err)
				}
			}
			if _, err := m.SignUp(cmd.Context(), f.email, f.password, role); err != nil {
				var remErr *dealAuth.RemoteError
				if errors.As(err, &remErr) && remErr.Partial {
					a.logger.Error("account created without a profile", "email", f.email, "error", err)
				}
				return userError(cmd, err)
			}
			printState(cmd, m.State())
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&confirm, "confirm", "", "password confirmation")
	return cmd
}

func newSignOutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, done, err := a.manager(cmd)
			if err != nil {
				return err
			}
			defer done()

			if err := m.SignOut(cmd.Context()); err != nil {
				return userError(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newResetPasswordCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password EMAIL",
		Short: "Request a password reset email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, done, err := a.manager(cmd)
			if err != nil {
				return err
			}
			defer done()

			notice, err := m.ResetPassword(cmd.Context(), args[0])
			if err != nil {
				return userError(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), notice)
			return nil
		},
	}
}

func newWhoAmICmd(a *app) *cobra.Command {
	var reload bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Restore the stored session and show the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, done, err := a.manager(cmd)
			if err != nil {
				return err
			}
			defer done()

			st, err := m.Restore(cmd.Context())
			if err != nil {
				return userError(cmd, err)
			}
			if reload && st.Authenticated {
				if _, err := m.ReloadProfile(cmd.Context()); err != nil {
					return userError(cmd, err)
				}
				st = m.State()
			}
			printState(cmd, st)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reload, "reload", false, "re-read the profile row after restoring")
	return cmd
}
