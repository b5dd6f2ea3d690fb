package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrEmptyInput indicates there was no text to embed: empty content
	// and no title produce zero chunks.
	ErrEmptyInput = errors.New("embedding: empty input")

	// ErrProviderUnavailable indicates the upstream embedding provider
	// failed. The caller may retry; the engine never retries internally.
	ErrProviderUnavailable = errors.New("embedding: provider unavailable")
)

// Provider is the external embedding boundary: one string in, one
// fixed-dimension vector out. Identical input must yield a cacheable
// result. Implementations must be safe for concurrent use.
type Provider interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Engine computes a single whole-document vector via chunk-and-average.
// Text is split into overlapping token windows, each window is embedded
// through the Provider, and the element-wise mean is returned. A non-empty
// title is appended as one additional chunk, weighting it equally with
// each body window.
//
// Engine is safe for concurrent use. Results for identical (text, title)
// pairs are served from the injected Cache, and concurrent misses for one
// pair collapse to a single provider call.
type Engine struct {
	provider  Provider
	cache     *Cache
	group     singleflight.Group
	maxTokens int
	overlap   int
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithChunking overrides the chunk window size and overlap. The pair
// must satisfy the Chunk constraints.
func WithChunking(maxTokens, overlap int) EngineOption {
	return func(e *Engine) {
		e.maxTokens = maxTokens
		e.overlap = overlap
	}
}

// NewEngine creates an Engine. cache may be shared with other engines;
// nil logger uses the default.
func NewEngine(provider Provider, cache *Cache, logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		provider:  provider,
		cache:     cache,
		maxTokens: DefaultMaxChunkTokens,
		overlap:   DefaultChunkOverlap,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Embed returns the embedding for (text, title). title may be empty.
// The returned vector is shared with the cache and must be treated as
// read-only; callers that mutate vectors (blending) must copy first.
func (e *Engine) Embed(ctx context.Context, text, title string) ([]float32, error) {
	if vec, ok := e.cache.Get(text, title); ok {
		return vec, nil
	}

	// Collapse concurrent misses for the same pair so the provider runs
	// at most once per unique (text, title) system-wide.
	key := text + "\x00" + title
	v, err, _ := e.group.Do(key, func() (any, error) {
		if vec, ok := e.cache.Get(text, title); ok {
			return vec, nil
		}
		vec, err := e.compute(ctx, text, title)
		if err != nil {
			return nil, err
		}
		e.cache.Put(text, title, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

func (e *Engine) compute(ctx context.Context, text, title string) ([]float32, error) {
	chunks := Chunk(text, e.maxTokens, e.overlap)
	if title != "" {
		chunks = append(chunks, title)
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyInput
	}

	vectors := make([][]float32, 0, len(chunks))
	for _, chunk := range chunks {
		vec, err := e.provider.EmbedText(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		if len(vec) == 0 {
			return nil, fmt.Errorf("%w: empty vector returned", ErrProviderUnavailable)
		}
		vectors = append(vectors, vec)
	}

	e.logger.Debug("computed embedding",
		"chunks", len(chunks), "dimension", len(vectors[0]), "text_length", len(text))
	return Mean(vectors), nil
}
