package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/inklings/inklings/db"
	"github.com/inklings/inklings/internal/config"
	"github.com/inklings/inklings/internal/content"
	"github.com/inklings/inklings/internal/embedding"
	"github.com/inklings/inklings/internal/feed"
	"github.com/inklings/inklings/internal/graph"
	"github.com/inklings/inklings/internal/metadata"
	"github.com/inklings/inklings/internal/reference"
	"github.com/inklings/inklings/internal/search"
)

// Setup creates and initializes the application. Call Close on the
// returned App to release everything.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, release whatever was already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	a.Engine = provideEngine(g, cfg, logger)

	a.Store, err = graph.NewStore(pool, logger)
	if err != nil {
		return nil, err
	}

	a.Retriever = search.New(pool, logger)
	a.Composer = feed.New(a.Store, a.Retriever, logger)

	completer := metadata.NewGenkitCompleter(g, "googleai/"+cfg.ModelName)
	a.Generator = metadata.NewGenerator(completer, logger)
	a.Fetcher = reference.NewFetcher(nil, completer, logger)
	a.Content = content.NewService(a.Store, a.Engine, a.Generator, a.Fetcher, logger)

	_, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	return a, nil
}

// provideDBPool runs migrations and opens the connection pool. pgvector
// types are registered on every connection so []float32 vectors scan
// transparently.
func provideDBPool(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// provideGenkit initializes Genkit with the Google AI plugin.
// GEMINI_API_KEY is read by the plugin directly.
func provideGenkit(ctx context.Context) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	return g, nil
}

// provideEngine builds the embedding pipeline: Genkit embedder, rate
// limit, LRU cache, chunk-and-average engine.
func provideEngine(g *genkit.Genkit, cfg *config.Config, logger *slog.Logger) *embedding.Engine {
	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	provider := embedding.NewRateLimited(
		embedding.NewGenkitProvider(embedder, config.VectorDimension),
		float64(cfg.EmbedderQPS), cfg.EmbedderQPS)
	cache := embedding.NewCache(cfg.EmbedderCacheLen)
	return embedding.NewEngine(provider, cache, logger,
		embedding.WithChunking(cfg.ChunkMaxTokens, cfg.ChunkOverlap))
}
