// Package search implements similarity retrieval: nearest-neighbor
// queries over stored embeddings, scoped by visibility and trimmed by
// caller-supplied exclusions.
//
// Scoring runs in the database. pgvector's <=> operator computes cosine
// distance against the HNSW indexes, the visibility scope renders to a
// set-membership filter, and results come back already ordered by
// (distance, id) so ties are deterministic.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/inklings/inklings/internal/graph"
)

// DefaultThreshold is the cosine distance above which two items are not
// considered similar at all.
const DefaultThreshold = 0.7

// DefaultLimit bounds result sets when the caller does not ask for a
// specific size.
const DefaultLimit = 20

// queryTimeout caps a single vector search so a cold HNSW index cannot
// stall a feed request.
const queryTimeout = 10 * time.Second

// Hit is one retrieval result. Smaller distance means more similar.
type Hit struct {
	Ref       graph.Ref
	Title     string
	Summary   string
	OwnerID   uuid.UUID
	Distance  float64
	UpdatedAt time.Time
}

// Option configures a retrieval using the functional options pattern.
type Option func(*config)

type config struct {
	limit     int
	threshold float64
	exclude   []uuid.UUID
}

// WithLimit caps the number of results. Default is DefaultLimit.
func WithLimit(n int) Option {
	return func(c *config) { c.limit = n }
}

// WithThreshold overrides the maximum cosine distance.
func WithThreshold(t float64) Option {
	return func(c *config) { c.threshold = t }
}

// WithExcludeIDs drops the given ids from the results: already-linked
// nodes, already-tagged items, or the focal item itself.
func WithExcludeIDs(ids []uuid.UUID) Option {
	return func(c *config) { c.exclude = ids }
}

func buildConfig(opts []Option) *config {
	cfg := &config{limit: DefaultLimit, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Retriever runs similarity queries. It is read-only and safe for
// concurrent use; it races harmlessly with writes (a just-written vector
// may be missed until the next request).
type Retriever struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Retriever.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{pool: pool, logger: logger}
}

// SimilarNodes returns nodes of kind closest to vec, visible to the
// scope's viewer at tier, ordered by ascending cosine distance.
func (r *Retriever) SimilarNodes(ctx context.Context, vec []float32, kind graph.Kind, scope *graph.Scope, tier graph.Tier, opts ...Option) ([]Hit, error) {
	cfg := buildConfig(opts)
	args := &graph.ArgList{}
	q := args.Add(pgvector.NewVector(vec))
	kindArg := args.Add(kind)
	vis := scope.SQLFilter("n", tier, args)

	query := fmt.Sprintf(
		`SELECT n.id, n.kind, n.title, n.summary, n.user_id, n.updated_at, n.embedding <=> %[1]s AS distance
		FROM nodes n
		WHERE n.kind = %[2]s AND n.embedding IS NOT NULL AND %[3]s
		  AND (n.embedding <=> %[1]s) < %[4]s AND NOT (n.id = ANY(%[5]s))
		ORDER BY distance, n.id
		LIMIT %[6]s`,
		q, kindArg, vis, args.Add(cfg.threshold), args.Add(excludeParam(cfg.exclude)), args.Add(cfg.limit))

	return r.run(ctx, query, args.Values(), kind)
}

// SimilarTags returns the owner's tags closest to vec. Tags carry no
// privacy setting; they are only ever surfaced to their owner.
func (r *Retriever) SimilarTags(ctx context.Context, vec []float32, ownerID uuid.UUID, opts ...Option) ([]Hit, error) {
	cfg := buildConfig(opts)
	args := &graph.ArgList{}
	q := args.Add(pgvector.NewVector(vec))

	query := fmt.Sprintf(
		`SELECT t.id, 'tag', t.name, '', t.user_id, t.updated_at, t.embedding <=> %[1]s AS distance
		FROM tags t
		WHERE t.user_id = %[2]s AND t.embedding IS NOT NULL
		  AND (t.embedding <=> %[1]s) < %[3]s AND NOT (t.id = ANY(%[4]s))
		ORDER BY distance, t.id
		LIMIT %[5]s`,
		q, args.Add(ownerID), args.Add(cfg.threshold), args.Add(excludeParam(cfg.exclude)), args.Add(cfg.limit))

	return r.run(ctx, query, args.Values(), graph.KindTag)
}

// SimilarLinks returns links closest to vec that are visible at tier:
// the link row and both endpoints must pass the filter.
func (r *Retriever) SimilarLinks(ctx context.Context, vec []float32, scope *graph.Scope, tier graph.Tier, opts ...Option) ([]Hit, error) {
	cfg := buildConfig(opts)
	args := &graph.ArgList{}
	q := args.Add(pgvector.NewVector(vec))
	vis := scope.LinkSQLFilter("l", tier, args)

	query := fmt.Sprintf(
		`SELECT l.id, 'link', lt.name, '', l.user_id, l.updated_at, l.embedding <=> %[1]s AS distance
		FROM links l JOIN link_types lt ON lt.id = l.link_type_id
		WHERE l.embedding IS NOT NULL AND %[2]s
		  AND (l.embedding <=> %[1]s) < %[3]s AND NOT (l.id = ANY(%[4]s))
		ORDER BY distance, l.id
		LIMIT %[5]s`,
		q, vis, args.Add(cfg.threshold), args.Add(excludeParam(cfg.exclude)), args.Add(cfg.limit))

	return r.run(ctx, query, args.Values(), graph.KindLink)
}

// excludeParam keeps the ANY() exclusion well-typed when there is
// nothing to exclude.
func excludeParam(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}

func (r *Retriever) run(ctx context.Context, query string, args []any, kind graph.Kind) ([]Hit, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(queryCtx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("similarity query for %s: %w", kind, err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Ref.ID, &h.Ref.Kind, &h.Title, &h.Summary,
			&h.OwnerID, &h.UpdatedAt, &h.Distance); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.logger.Debug("similarity retrieval", "kind", kind, "hits", len(hits))
	return hits, nil
}
