package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/inklings/inklings/internal/app"
	"github.com/inklings/inklings/internal/feed"
)

var flagFeedLimit int

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Browse what you and your friends have been thinking",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			u, err := currentUser(ctx, a)
			if err != nil {
				return err
			}
			tier, err := currentTier()
			if err != nil {
				return err
			}
			scope, err := a.Store.ScopeFor(ctx, u.ID)
			if err != nil {
				return err
			}
			items, err := a.Composer.Recent(ctx, u, scope, tier)
			if err != nil {
				return err
			}
			printFeed(items)
			return nil
		})
	},
}

var focusCmd = &cobra.Command{
	Use:   "focus <node-id | tag:tag-id>",
	Short: "Surface items related to one node or tag, per visibility tier",
	Args:  cobra.ExactArgs(1),
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

			var feeds []feed.TierFeed
			if rest, isTag := strings.CutPrefix(args[0], "tag:"); isTag {
				id, err := uuid.Parse(rest)
				if err != nil {
					return fmt.Errorf("invalid tag id: %w", err)
				}
				tag, err := a.Store.TagByID(ctx, id)
				if err != nil {
					return err
				}
				if tag.UserID != u.ID {
					return fmt.Errorf("tag %q belongs to another user", tag.Name)
				}
				feeds, err = a.Composer.ForTag(ctx, tag, scope, flagFeedLimit)
				if err != nil {
					return err
				}
			} else {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid node id: %w", err)
				}
				node, err := a.Store.GetNode(ctx, id)
				if err != nil {
					return err
				}
				feeds, err = a.Composer.ForFocus(ctx, node, scope, flagFeedLimit)
				if err != nil {
					return err
				}
			}

			for _, f := range feeds {
				fmt.Printf("── %s ──\n", f.Tier)
				printSimilar(f.Items)
			}
			return nil
		})
	},
}

func printFeed(items []feed.Item) {
	if len(items) == 0 {
		fmt.Println("  (empty)")
		return
	}
	for _, it := range items {
		fmt.Printf("  %s  %s  %s\n", it.UpdatedAt.Format("2006-01-02 15:04"), it.Ref, it.Title)
	}
}

func init() {
	focusCmd.Flags().IntVarP(&flagFeedLimit, "limit", "n", 0, "items per tier (0 uses the default)")

	feedCmd.AddCommand(focusCmd)
	rootCmd.AddCommand(feedCmd)
}
