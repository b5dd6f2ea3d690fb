// Package cmd implements the inklings CLI.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/inklings/inklings/internal/app"
	"github.com/inklings/inklings/internal/config"
	"github.com/inklings/inklings/internal/graph"
	"github.com/inklings/inklings/internal/log"
)

var (
	flagUser string
	flagTier string
)

var rootCmd = &cobra.Command{
	Use:   "inklings",
	Short: "A personal knowledge graph with a social dimension",
	Long: `inklings stores memos, atomic thoughts and reference clippings as an
embedded knowledge graph: items are connected by typed links, organized
with tags, shared along the friend graph and retrieved by similarity.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "act as this username")
	rootCmd.PersistentFlags().StringVarP(&flagTier, "tier", "t", string(graph.TierFriends),
		"visibility tier for reads (own, friends, fof)")
}

// initLogger builds the process logger. DEBUG in the environment turns
// on debug logging.
func initLogger() *slog.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
		cfg.AddSource = true
	}
	return log.New(cfg)
}

// withApp loads configuration, assembles the application and runs fn,
// closing everything afterwards.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	logger := initLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing application", "error", err)
		}
	}()

	return fn(ctx, a)
}

// currentUser resolves the --user flag.
func currentUser(ctx context.Context, a *app.App) (*graph.User, error) {
	if flagUser == "" {
		return nil, fmt.Errorf("no user given: pass --user")
	}
	return a.Store.UserByName(ctx, flagUser)
}

// currentTier parses the --tier flag.
func currentTier() (graph.Tier, error) {
	return graph.ParseTier(flagTier)
}

// parsePrivacy maps the CLI privacy flag value.
func parsePrivacy(s string) (graph.Privacy, error) {
	switch graph.Privacy(s) {
	case graph.PrivacyPrivate, graph.PrivacyFriends, graph.PrivacyFriendsOfFriends:
		return graph.Privacy(s), nil
	}
	return "", fmt.Errorf("invalid privacy %q (private, friends, friends_of_friends)", s)
}
