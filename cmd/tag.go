package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/inklings/inklings/internal/app"
)

var flagMergeName string

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Label items with tags",
}

var tagAddCmd = &cobra.Command{
	Use:   "add <kind:id> <name>...",
	Short: "Attach tags to an item, creating them as needed",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			u, err := currentUser(ctx, a)
			if err != nil {
				return err
			}
			item, err := parseRef(args[0])
			if err != nil {
				return err
			}
			tags, err := a.Store.CreateTags(ctx, item, u.ID, args[1:], a.Engine.Embed)
			if err != nil {
				return err
			}
			for _, t := range tags {
				fmt.Printf("tagged %s (%s)\n", t.Name, t.ID)
			}
			return nil
		})
	},
}

var tagRemoveCmd = &cobra.Command{
	Use:   "remove <kind:id> <tag-id>",
	Short: "Detach a tag from an item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			item, err := parseRef(args[0])
			if err != nil {
				return err
			}
			tagID, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid tag id: %w", err)
			}
			return a.Store.DetachTag(ctx, tagID, item)
		})
	},
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your tags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			u, err := currentUser(ctx, a)
			if err != nil {
				return err
			}
			tags, err := a.Store.TagsOfUser(ctx, u.ID)
			if err != nil {
				return err
			}
			for _, t := range tags {
				fmt.Printf("%s  %s\n", t.ID, t.Name)
			}
			return nil
		})
	},
}

var tagMergeCmd = &cobra.Command{
	Use:   "merge <keep-id> <absorb-id>",
	Short: "Merge one tag into another, moving its taggings",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			dstID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid tag id: %w", err)
			}
			srcID, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid tag id: %w", err)
			}
			t, err := a.Store.MergeTags(ctx, dstID, srcID, flagMergeName, a.Engine.Embed)
			if err != nil {
				return err
			}
			fmt.Printf("merged into %s (%s)\n", t.Name, t.ID)
			return nil
		})
	},
}

func init() {
	tagMergeCmd.Flags().StringVar(&flagMergeName, "rename", "", "new name for the surviving tag")

	tagCmd.AddCommand(tagAddCmd, tagRemoveCmd, tagListCmd, tagMergeCmd)
	rootCmd.AddCommand(tagCmd)
}
