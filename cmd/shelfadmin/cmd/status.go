package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd(g *globalFlags) *cobra.Command {
	c := &cobra.Command{
		Use:   "status",
		Short: "Show whether a valid session is stored",
		Args:  cobra.NoArgs,
	}
	c.RunE = g.run(func(_ context.Context, a *app, _ []string) error {
		st := a.session.Status()
		if !st.Authenticated {
			fmt.Fprintln(a.out, "authenticated: no")
			return nil
		}
		fmt.Fprintln(a.out, "authenticated: yes")
		fmt.Fprintf(a.out, "user: %s (id %s)\n", st.User.DisplayName(), st.User.ID())
		if st.ExpiresAt.IsZero() {
			fmt.Fprintln(a.out, "expires: never")
			return nil
		}
		fmt.Fprintf(a.out, "expires: %s (in %s)\n",
			st.ExpiresAt.Format(time.RFC3339),
			time.Until(st.ExpiresAt).Round(time.Second))
		return nil
	})
	return c
}

func newWhoamiCmd(g *globalFlags) *cobra.Command {
	c := &cobra.Command{
		Use:   "whoami",
		Short: "Print the stored profile",
		Args:  cobra.NoArgs,
	}
	c.RunE = g.run(func(_ context.Context, a *app, _ []string) error {
		p := a.session.CurrentUser()
		if p == nil {
			return errNotLoggedIn
		}
		return printJSON(a.out, p)
	})
	return c
}
