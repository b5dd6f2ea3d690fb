package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/inklings/inklings/internal/app"
	"github.com/inklings/inklings/internal/graph"
)

// parseRef reads "kind:id" into a tagged reference.
func parseRef(s string) (graph.Ref, error) {
	kind, idStr, ok := strings.Cut(s, ":")
	if !ok {
		return graph.Ref{}, fmt.Errorf("invalid reference %q, want kind:id", s)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return graph.Ref{}, fmt.Errorf("invalid reference %q: %w", s, err)
	}
	ref := graph.Ref{Kind: graph.Kind(kind), ID: id}
	if !ref.Kind.ValidEndpoint() {
		return graph.Ref{}, fmt.Errorf("%q cannot be linked", kind)
	}
	return ref, nil
}

var linkTypeCmd = &cobra.Command{
	Use:   "linktype <name> <reverse-name>",
	Short: "Define a relation kind",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			u, err := currentUser(ctx, a)
			if err != nil {
				return err
			}
			lt, err := a.Store.CreateLinkType(ctx, u.ID, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("link type %q / %q (%s)\n", lt.Name, lt.ReverseName, lt.ID)
			return nil
		})
	},
}

var linkCmd = &cobra.Command{
	Use:   "link <type-id> <kind:id> <kind:id>",
	Short: "Connect two items with a typed relation",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			u, err := currentUser(ctx, a)
			if err != nil {
				return err
			}
			typeID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid link type id: %w", err)
			}
			source, err := parseRef(args[1])
			if err != nil {
				return err
			}
			target, err := parseRef(args[2])
			if err != nil {
				return err
			}
			privacy, err := parsePrivacy(flagPrivacy)
			if err != nil {
				return err
			}
			l, err := a.Content.CreateLink(ctx, u.ID, typeID, source, target, privacy)
			if err != nil {
				return err
			}
			fmt.Printf("linked %s -%s-> %s (%s)\n", source, l.Type.Name, target, l.ID)
			return nil
		})
	},
}

var relatedCmd = &cobra.Command{
	Use:   "related <kind:id>",
	Short: "Show an item's links, grouped by relation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			u, err := currentUser(ctx, a)
			if err != nil {
				return err
			}
			ref, err := parseRef(args[0])
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
			groups, err := a.Store.LinkGroups(ctx, ref, scope, tier)
			if err != nil {
				return err
			}
			for _, g := range groups {
				fmt.Printf("%s:\n", g.Label())
				for _, other := range g.Others {
					fmt.Printf("  %s\n", other)
				}
			}
			if len(groups) == 0 {
				fmt.Println("no links")
			}
			return nil
		})
	},
}

func init() {
	linkCmd.Flags().StringVarP(&flagPrivacy, "privacy", "p", string(graph.PrivacyPrivate),
		"privacy setting (private, friends, friends_of_friends)")

	rootCmd.AddCommand(linkTypeCmd, linkCmd, relatedCmd)
}
