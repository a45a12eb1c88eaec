package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func newPasswordCmd(g *globalFlags) *cobra.Command {
	c := &cobra.Command{
		Use:   "password",
		Short: "Recover, reset or change a password",
	}
	c.AddCommand(newPasswordForgotCmd(g), newPasswordResetCmd(g), newPasswordChangeCmd(g))
	return c
}

func newPasswordForgotCmd(g *globalFlags) *cobra.Command {
	var email string
	c := &cobra.Command{
		Use:   "forgot",
		Short: "Ask for reset instructions by email",
		Args:  cobra.NoArgs,
	}
	c.RunE = g.run(func(ctx context.Context, a *app, _ []string) error {
		body, err := a.session.ForgotPassword(ctx, email)
		if err != nil {
			return err
		}
		printMessage(a.out, body, "reset instructions sent")
		return nil
	})
	c.Flags().StringVar(&email, "email", "", "Account email")
	return c
}

func newPasswordResetCmd(g *globalFlags) *cobra.Command {
	var token, newPassword string
	c := &cobra.Command{
		Use:   "reset",
		Short: "Set a new password with a reset token",
		Args:  cobra.NoArgs,
	}
	c.RunE = g.run(func(ctx context.Context, a *app, _ []string) error {
		body, err := a.session.ResetPassword(ctx, token, newPassword)
		if err != nil {
			return err
		}
		printMessage(a.out, body, "password reset")
		return nil
	})
	c.Flags().StringVar(&token, "token", "", "Reset token from the email")
	c.Flags().StringVar(&newPassword, "new", "", "New password")
	return c
}

func newPasswordChangeCmd(g *globalFlags) *cobra.Command {
	var userID, oldPassword, newPassword string
	c := &cobra.Command{
		Use:   "change",
		Short: "Change the password of the signed-in account",
		Args:  cobra.NoArgs,
	}
	c.RunE = g.run(func(ctx context.Context, a *app, _ []string) error {
		id, err := a.currentUserID(userID)
		if err != nil {
			return err
		}
		body, err := a.session.ChangePassword(ctx, id, oldPassword, newPassword)
		if err != nil {
			return err
		}
		printMessage(a.out, body, "password changed")
		return nil
	})
	c.Flags().StringVar(&userID, "user", "", "Account id (default: signed-in user)")
	c.Flags().StringVar(&oldPassword, "old", "", "Current password")
	c.Flags().StringVar(&newPassword, "new", "", "New password")
	return c
}
