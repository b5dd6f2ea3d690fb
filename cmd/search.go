package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inklings/inklings/internal/app"
	"github.com/inklings/inklings/internal/feed"
	"github.com/inklings/inklings/internal/search"
)

var flagSearchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Find items by meaning, not keywords",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			u, err := currentUser(ctx, a)
			if err != nil {
				return err
			}
			scope, err := a.Store.ScopeFor(ctx, u.ID)
			if err != nil {
				return err
			}
			vec, err := a.Engine.Embed(ctx, strings.Join(args, " "), "")
			if err != nil {
				return err
			}
			feeds, err := a.Composer.ForQuery(ctx, vec, scope, flagSearchLimit)
			if err != nil {
				return err
			}
			for _, f := range feeds {
				fmt.Printf("── %s ──\n", f.Tier)
				printSimilar(f.Items)
			}
			return nil
		})
	},
}

func printSimilar(items []feed.Item) {
	if len(items) == 0 {
		fmt.Println("  (empty)")
		return
	}
	for _, it := range items {
		fmt.Printf("  %.3f  %s  %s\n", it.Distance, it.Ref, it.Title)
	}
}

func init() {
	searchCmd.Flags().IntVarP(&flagSearchLimit, "limit", "n", search.DefaultLimit, "max results per tier")

	rootCmd.AddCommand(searchCmd)
}
