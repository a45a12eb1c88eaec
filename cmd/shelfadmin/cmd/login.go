package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shelfdesk/shelfadmin/session"
)

func newLoginCmd(g *globalFlags) *cobra.Command {
	var email, password string
	c := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session on disk",
		Args:  cobra.NoArgs,
	}
	c.RunE = g.run(func(ctx context.Context, a *app, _ []string) error {
		if password == "" {
			p, err := readPassword(a.stdin, a.errOut, "Password: ")
			if err != nil {
				return err
			}
			password = p
		}
		res, err := a.session.Login(ctx, session.Credentials{Email: email, Password: password})
		if err != nil {
			return err
		}
		if res.Token == "" {
			printMessage(a.out, res.Body, "login accepted but no session was issued")
			return nil
		}
		fmt.Fprintf(a.out, "Welcome, %s!\n", res.User.DisplayName())
		return nil
	})
	c.Flags().StringVar(&email, "email", "", "Account email")
	c.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	return c
}

func newRegisterCmd(g *globalFlags) *cobra.Command {
	var email, password, name string
	c := &cobra.Command{
		Use:   "register",
		Short: "Create a dashboard account",
		Args:  cobra.NoArgs,
	}
	c.RunE = g.run(func(ctx context.Context, a *app, _ []string) error {
		if password == "" {
			p, err := readPassword(a.stdin, a.errOut, "Password: ")
			if err != nil {
				return err
			}
			password = p
		}
		account := map[string]any{"email": email, "password": password}
		if name != "" {
			account["name"] = name
		}
		body, err := a.session.Register(ctx, account)
		if err != nil {
			return err
		}
		printMessage(a.out, body, "account created")
		return nil
	})
	c.Flags().StringVar(&email, "email", "", "Account email")
	c.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	c.Flags().StringVar(&name, "name", "", "Display name")
	_ = c.MarkFlagRequired("email")
	return c
}

func newLogoutCmd(g *globalFlags) *cobra.Command {
	c := &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored credential",
		Args:  cobra.NoArgs,
	}
	c.RunE = g.run(func(_ context.Context, a *app, _ []string) error {
		a.session.Logout()
		fmt.Fprintln(a.out, "logged out")
		return nil
	})
	return c
}
