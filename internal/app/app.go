// Package app assembles the application: configuration, database pool,
// Genkit, the embedding engine and the domain services, with a single
// Close for teardown.
package app

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inklings/inklings/internal/config"
	"github.com/inklings/inklings/internal/content"
	"github.com/inklings/inklings/internal/embedding"
	"github.com/inklings/inklings/internal/feed"
	"github.com/inklings/inklings/internal/graph"
	"github.com/inklings/inklings/internal/metadata"
	"github.com/inklings/inklings/internal/reference"
	"github.com/inklings/inklings/internal/search"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit *genkit.Genkit
	DBPool *pgxpool.Pool

	Engine    *embedding.Engine
	Store     *graph.Store
	Retriever *search.Retriever
	Composer  *feed.Composer
	Generator *metadata.Generator
	Fetcher   *reference.Fetcher
	Content   *content.Service

	cancel context.CancelFunc
}

// Close shuts down everything Setup created.
func (a *App) Close() error {
	a.Logger.Info("shutting down")

	if a.cancel != nil {
		a.cancel()
	}
	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database pool closed")
	}
	return nil
}
