package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configFile string
	verbose    bool
	metrics    bool
}

// NewRootCommand builds the command tree. Each call returns an independent
// tree so tests can run commands side by side.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "shelfadmin",
		Short: "shelfadmin administers the book catalog from the terminal",
		Long: `A terminal client for the book catalog dashboard: sign in once, and the
session is kept on disk and attached to every request until you log out or the
server rejects it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "Config file (default ./shelfadmin.yaml, then ~/.shelfadmin/shelfadmin.yaml)")
	pf.String("api-url", "", "Base URL of the dashboard API")
	pf.String("data-dir", "", "Directory holding the persisted session")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Log at debug level")
	pf.BoolVar(&g.metrics, "metrics", false, "Print client metrics before exiting")

	root.AddCommand(
		newLoginCmd(g),
		newRegisterCmd(g),
		newLogoutCmd(g),
		newStatusCmd(g),
		newWhoamiCmd(g),
		newListCmd(g),
		newDashboardCmd(g),
		newPasswordCmd(g),
		newProfileCmd(g),
		newVersionCmd(),
	)
	return root
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := NewRootCommand()
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "error:", err)
		os.Exit(1)
	}
}
