package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/inklings/inklings/internal/app"
	"github.com/inklings/inklings/internal/content"
	"github.com/inklings/inklings/internal/graph"
)

var (
	flagPrivacy string
	flagTitle   string
)

func addWriteFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagPrivacy, "privacy", "p", string(graph.PrivacyPrivate),
		"privacy setting (private, friends, friends_of_friends)")
	cmd.Flags().StringVar(&flagTitle, "title", "", "title (derived from content when empty)")
}

// createNodeCommand builds the shared memo/inkling creation command.
func createNodeCommand(use, short string, create func(context.Context, *app.App, uuid.UUID, content.Draft) (*graph.Node, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <text>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				u, err := currentUser(ctx, a)
				if err != nil {
					return err
				}
				privacy, err := parsePrivacy(flagPrivacy)
				if err != nil {
					return err
				}
				n, err := create(ctx, a, u.ID, content.Draft{
					Title:   flagTitle,
					Content: strings.Join(args, " "),
					Privacy: privacy,
				})
				if err != nil {
					return err
				}
				fmt.Printf("saved %s %q (%s)\n", n.Kind, n.Title, n.ID)
				return nil
			})
		},
	}
	addWriteFlags(cmd)
	return cmd
}

var referenceCmd = &cobra.Command{
	Use:   "clip <url>",
	Short: "Clip a web page as a reference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			u, err := currentUser(ctx, a)
			if err != nil {
				return err
			}
			privacy, err := parsePrivacy(flagPrivacy)
			if err != nil {
				return err
			}
			n, err := a.Content.CreateReference(ctx, u.ID, args[0], privacy)
			if err != nil {
				return err
			}
			fmt.Printf("clipped %q (%s)\n", n.Title, n.ID)
			if n.Source != nil && n.Source.Authors != "" {
				fmt.Printf("  by %s\n", n.Source.Authors)
			}
			return nil
		})
	},
}

var hatchCmd = &cobra.Command{
	Use:   "hatch <memo-id>",
	Short: "Split a memo into atomic inklings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid memo id: %w", err)
			}
			inklings, err := a.Content.HatchInklings(ctx, id)
			if err != nil {
				return err
			}
			for _, n := range inklings {
				fmt.Printf("hatched %q (%s)\n", n.Title, n.ID)
			}
			fmt.Printf("%d inklings hatched\n", len(inklings))
			return nil
		})
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id> <text>...",
	Short: "Replace an item's content and re-index it",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid id: %w", err)
			}
			var privacy graph.Privacy
			if flagPrivacy != "" {
				if privacy, err = parsePrivacy(flagPrivacy); err != nil {
					return err
				}
			}
			n, err := a.Content.UpdateNode(ctx, id, content.Draft{
				Title:   flagTitle,
				Content: strings.Join(args[1:], " "),
				Privacy: privacy,
			})
			if err != nil {
				return err
			}
			fmt.Printf("updated %s %q\n", n.Kind, n.Title)
			return nil
		})
	},
}

func init() {
	memoCmd := createNodeCommand("memo", "Save a memo",
		func(ctx context.Context, a *app.App, userID uuid.UUID, d content.Draft) (*graph.Node, error) {
			return a.Content.CreateMemo(ctx, userID, d)
		})
	inklingCmd := createNodeCommand("inkling", "Save a single atomic thought",
		func(ctx context.Context, a *app.App, userID uuid.UUID, d content.Draft) (*graph.Node, error) {
			return a.Content.CreateInkling(ctx, userID, d)
		})
	addWriteFlags(referenceCmd)
	editCmd.Flags().StringVarP(&flagPrivacy, "privacy", "p", "", "new privacy setting (unchanged when empty)")
	editCmd.Flags().StringVar(&flagTitle, "title", "", "new title")

	rootCmd.AddCommand(memoCmd, inklingCmd, referenceCmd, hatchCmd, editCmd)
}
