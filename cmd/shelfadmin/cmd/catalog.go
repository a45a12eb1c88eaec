package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shelfdesk/shelfadmin/catalog"
)

func newListCmd(g *globalFlags) *cobra.Command {
	c := &cobra.Command{
		Use:       "list authors|books|images",
		Short:     "Print a collection, one JSON record per line",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(catalog.Authors), string(catalog.Books), string(catalog.Images)},
	}
	c.RunE = g.run(func(ctx context.Context, a *app, args []string) error {
		kind, err := catalog.ParseKind(args[0])
		if err != nil {
			return err
		}
		records, err := a.catalog.List(ctx, kind)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(a.out)
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	})
	return c
}

func newDashboardCmd(g *globalFlags) *cobra.Command {
	c := &cobra.Command{
		Use:   "dashboard",
		Short: "Count authors, books and images",
		Args:  cobra.NoArgs,
	}
	c.RunE = g.run(func(ctx context.Context, a *app, _ []string) error {
		sum, err := a.catalog.Summary(ctx)
		if err != nil {
			return err
		}
		for _, k := range catalog.Kinds {
			fmt.Fprintf(a.out, "%s: %d\n", k, sum[k])
		}
		return nil
	})
	return c
}
