package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inklings/inklings/internal/app"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users and the friend graph",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Register a new user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			u, err := a.Store.CreateUser(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("created user %s (%s)\n", u.Username, u.ID)
			return nil
		})
	},
}

var userIntentionCmd = &cobra.Command{
	Use:   "intention <text>...",
	Short: "Set your intention, biasing the chronological feed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			u, err := currentUser(ctx, a)
			if err != nil {
				return err
			}
			intention := strings.Join(args, " ")
			vec, err := a.Engine.Embed(ctx, intention, "")
			if err != nil {
				return fmt.Errorf("embedding intention: %w", err)
			}
			if err := a.Store.SetIntention(ctx, u.ID, intention, vec); err != nil {
				return err
			}
			fmt.Println("intention updated")
			return nil
		})
	},
}

var friendCmd = &cobra.Command{
	Use:   "friend",
	Short: "Manage friendships",
}

var friendRequestCmd = &cobra.Command{
	Use:   "request <username>",
	Short: "Send a friend request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			u, err := currentUser(ctx, a)
			if err != nil {
				return err
			}
			other, err := a.Store.UserByName(ctx, args[0])
			if err != nil {
				return err
			}
			if _, err := a.Store.SendFriendRequest(ctx, u.ID, other.ID); err != nil {
				return err
			}
			fmt.Printf("friend request sent to %s\n", other.Username)
			return nil
		})
	},
}

var friendAcceptCmd = &cobra.Command{
	Use:   "accept <username>",
	Short: "Accept a pending friend request from a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			u, err := currentUser(ctx, a)
			if err != nil {
				return err
			}
			sender, err := a.Store.UserByName(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.Store.AcceptFriendRequest(ctx, sender.ID, u.ID); err != nil {
				return err
			}
			fmt.Printf("you are now friends with %s\n", sender.Username)
			return nil
		})
	},
}

var friendDeclineCmd = &cobra.Command{
	Use:   "decline <username>",
	Short: "Decline a pending friend request from a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			u, err := currentUser(ctx, a)
			if err != nil {
				return err
			}
			sender, err := a.Store.UserByName(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.Store.DeclineFriendRequest(ctx, sender.ID, u.ID); err != nil {
				return err
			}
			fmt.Printf("declined request from %s\n", sender.Username)
			return nil
		})
	},
}

func init() {
	userCmd.AddCommand(userCreateCmd, userIntentionCmd)
	friendCmd.AddCommand(friendRequestCmd, friendAcceptCmd, friendDeclineCmd)
	rootCmd.AddCommand(userCmd, friendCmd)
}
