package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newProfileCmd(g *globalFlags) *cobra.Command {
	c := &cobra.Command{
		Use:   "profile",
		Short: "Show or update an account profile",
	}
	c.AddCommand(newProfileShowCmd(g), newProfileUpdateCmd(g))
	return c
}

func newProfileShowCmd(g *globalFlags) *cobra.Command {
	var userID string
	c := &cobra.Command{
		Use:   "show",
		Short: "Fetch the profile from the server",
		Args:  cobra.NoArgs,
	}
	c.RunE = g.run(func(ctx context.Context, a *app, _ []string) error {
		id, err := a.currentUserID(userID)
		if err != nil {
			return err
		}
		body, err := a.session.GetProfile(ctx, id)
		if err != nil {
			return err
		}
		return printBody(a.out, body)
	})
	c.Flags().StringVar(&userID, "user", "", "Account id (default: signed-in user)")
	return c
}

func newProfileUpdateCmd(g *globalFlags) *cobra.Command {
	var userID string
	var sets []string
	c := &cobra.Command{
		Use:   "update",
		Short: "Update profile fields",
		Args:  cobra.NoArgs,
	}
	c.RunE = g.run(func(ctx context.Context, a *app, _ []string) error {
		fields, err := parseAssignments(sets)
		if err != nil {
			return err
		}
		id, err := a.currentUserID(userID)
		if err != nil {
			return err
		}
		body, err := a.session.UpdateProfile(ctx, id, fields)
		if err != nil {
			return err
		}
		printMessage(a.out, body, "profile updated")
		return nil
	})
	c.Flags().StringVar(&userID, "user", "", "Account id (default: signed-in user)")
	c.Flags().StringArrayVar(&sets, "set", nil, "Field to set as key=value (repeatable)")
	return c
}

func parseAssignments(sets []string) (map[string]any, error) {
	if len(sets) == 0 {
		return nil, errors.New("nothing to update; pass at least one --set key=value")
	}
	fields := make(map[string]any, len(sets))
	for _, s := range sets {
		k, v, ok := strings.Cut(s, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q, want key=value", s)
		}
		fields[k] = v
	}
	return fields, nil
}
