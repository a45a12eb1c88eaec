package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Version is overridden at build time with
// -ldflags "-X github.com/shelfdesk/shelfadmin/cmd/shelfadmin/cmd.Version=...".
var Version = "dev"

const banner = `
      _          _  __           _           _
  ___| |__   ___| |/ _| __ _  __| |_ __ ___ (_)_ __
 / __| '_ \ / _ \ | |_ / _` + "`" + ` |/ _` + "`" + ` | '_ ` + "`" + ` _ \| | '_ \
 \__ \ | | |  __/ |  _| (_| | (_| | | | | | | | | | |
 |___/_| |_|\___|_|_|  \__,_|\__,_|_| |_| |_|_|_| |_|
`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[34m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  Book catalog administration - Version %s\x1b[0m\n\n", Version)
}

func newVersionCmd() *cobra.Command {
	var short bool
	c := &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), Version)
				return
			}
			printBanner(cmd.OutOrStdout())
		},
	}
	c.Flags().BoolVar(&short, "short", false, "Print only the version string")
	return c
}
