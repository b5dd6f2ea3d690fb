// Package feed assembles the two home surfaces: similarity feeds
// around a focal item, one per visibility tier, and a chronological
// feed of recent activity optionally re-ranked by the reader's stated
// intention.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/inklings/inklings/internal/embedding"
	"github.com/inklings/inklings/internal/graph"
	"github.com/inklings/inklings/internal/search"
)

// RecentPerKind is how many recent items of each kind the chronological
// feed pulls before merging.
const RecentPerKind = 20

// rerankBatch is the window size for intention re-ranking: recency
// decides which items make a batch, intention decides the order inside
// it. This keeps the feed fresh while still surfacing what the reader
// said they care about.
const rerankBatch = 10

// Item is one feed entry. Distance is the cosine distance to the focal
// item (similarity feeds) and zero in chronological feeds.
type Item struct {
	Ref       graph.Ref
	Title     string
	Summary   string
	OwnerID   uuid.UUID
	Distance  float64
	UpdatedAt time.Time

	vec []float32
}

// TierFeed is the similarity feed at one visibility tier. Tiers widen
// cumulatively, so the friends feed contains everything the own feed
// does.
type TierFeed struct {
	Tier  graph.Tier
	Items []Item
}

// Composer builds feeds from the store and the retriever. It holds no
// per-request state and is safe for concurrent use.
type Composer struct {
	store     *graph.Store
	retriever *search.Retriever
	logger    *slog.Logger
}

// New creates a Composer.
func New(store *graph.Store, retriever *search.Retriever, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{store: store, retriever: retriever, logger: logger}
}

// focus is what a similarity feed is built around: a vector plus the
// exclusions specific to the focal object.
type focus struct {
	vec     []float32
	exclude map[graph.Kind][]uuid.UUID
	tagIDs  []uuid.UUID
}

// ForFocus builds one similarity feed per tier around node. Each feed
// unions the nearest memos, references, inklings and links visible at
// that tier, plus the viewer's nearby tags, re-sorted globally by
// distance with the id as tie-break. The focal item, anything already
// linked to it and its attached tags are excluded.
func (c *Composer) ForFocus(ctx context.Context, node *graph.Node, scope *graph.Scope, limit int) ([]TierFeed, error) {
	if len(node.Embedding) == 0 {
		return nil, fmt.Errorf("focal %s has no embedding", node.Ref())
	}

	exclude := make(map[graph.Kind][]uuid.UUID, len(graph.EndpointKinds))
	for _, kind := range graph.EndpointKinds {
		ids, err := c.store.RelatedIDs(ctx, node.Ref(), kind)
		if err != nil {
			return nil, fmt.Errorf("related %s ids: %w", kind, err)
		}
		exclude[kind] = ids
	}
	attached, err := c.store.ItemTags(ctx, node.Ref())
	if err != nil {
		return nil, fmt.Errorf("attached tags: %w", err)
	}
	tagIDs := make([]uuid.UUID, 0, len(attached))
	for _, t := range attached {
		tagIDs = append(tagIDs, t.ID)
	}

	return c.feeds(ctx, focus{vec: node.Embedding, exclude: exclude, tagIDs: tagIDs}, scope, limit)
}

// ForTag builds one similarity feed per tier around one of the viewer's
// tags. Items already carrying the tag are excluded, as is the tag
// itself.
func (c *Composer) ForTag(ctx context.Context, tag *graph.Tag, scope *graph.Scope, limit int) ([]TierFeed, error) {
	if len(tag.Embedding) == 0 {
		return nil, fmt.Errorf("focal tag %q has no embedding", tag.Name)
	}

	exclude := make(map[graph.Kind][]uuid.UUID, len(graph.EndpointKinds))
	for _, kind := range graph.EndpointKinds {
		ids, err := c.store.TaggedItemIDs(ctx, tag.ID, kind)
		if err != nil {
			return nil, fmt.Errorf("items tagged %q: %w", tag.Name, err)
		}
		exclude[kind] = ids
	}

	return c.feeds(ctx, focus{vec: tag.Embedding, exclude: exclude, tagIDs: []uuid.UUID{tag.ID}}, scope, limit)
}

// ForQuery builds one similarity feed per tier around an ad-hoc query
// vector. The query has no prior connections, so nothing is excluded.
func (c *Composer) ForQuery(ctx context.Context, vec []float32, scope *graph.Scope, limit int) ([]TierFeed, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("query has no embedding")
	}
	return c.feeds(ctx, focus{vec: vec}, scope, limit)
}

func (c *Composer) feeds(ctx context.Context, f focus, scope *graph.Scope, limit int) ([]TierFeed, error) {
	if limit <= 0 {
		limit = search.DefaultLimit
	}
	feeds := make([]TierFeed, 0, len(graph.Tiers))
	for _, tier := range graph.Tiers {
		items, err := c.focusTier(ctx, f, scope, tier, limit)
		if err != nil {
			return nil, fmt.Errorf("feed at tier %s: %w", tier, err)
		}
		feeds = append(feeds, TierFeed{Tier: tier, Items: items})
	}
	return feeds, nil
}

func (c *Composer) focusTier(ctx context.Context, f focus, scope *graph.Scope, tier graph.Tier, limit int) ([]Item, error) {
	var hits []search.Hit
	for _, kind := range graph.NodeKinds {
		kindHits, err := c.retriever.SimilarNodes(ctx, f.vec, kind, scope, tier,
			search.WithLimit(limit),
			search.WithExcludeIDs(f.exclude[kind]))
		if err != nil {
			return nil, err
		}
		hits = append(hits, kindHits...)
	}

	linkHits, err := c.retriever.SimilarLinks(ctx, f.vec, scope, tier,
		search.WithLimit(limit),
		search.WithExcludeIDs(f.exclude[graph.KindLink]))
	if err != nil {
		return nil, err
	}
	hits = append(hits, linkHits...)

	// Tags carry no privacy and only ever belong to the viewer, so the
	// tag portion is identical across tiers.
	tagHits, err := c.retriever.SimilarTags(ctx, f.vec, scope.Viewer,
		search.WithLimit(limit),
		search.WithExcludeIDs(f.tagIDs))
	if err != nil {
		return nil, err
	}
	hits = append(hits, tagHits...)

	items := make([]Item, 0, len(hits))
	for _, h := range hits {
		items = append(items, Item{
			Ref:       h.Ref,
			Title:     h.Title,
			Summary:   h.Summary,
			OwnerID:   h.OwnerID,
			Distance:  h.Distance,
			UpdatedAt: h.UpdatedAt,
		})
	}
	sortByDistance(items)
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Recent builds the chronological feed: the most recent items of every
// kind visible at tier, merged by update time. When the reader has an
// intention embedding, each run of rerankBatch items is re-ordered by
// distance to that intention.
func (c *Composer) Recent(ctx context.Context, user *graph.User, scope *graph.Scope, tier graph.Tier) ([]Item, error) {
	var items []Item
	for _, kind := range graph.NodeKinds {
		nodes, err := c.store.RecentNodes(ctx, kind, scope, tier, RecentPerKind)
		if err != nil {
			return nil, fmt.Errorf("recent %ss: %w", kind, err)
		}
		for _, n := range nodes {
			items = append(items, Item{
				Ref:       n.Ref(),
				Title:     n.Title,
				Summary:   n.Summary,
				OwnerID:   n.UserID,
				UpdatedAt: n.UpdatedAt,
				vec:       n.Embedding,
			})
		}
	}

	links, err := c.store.RecentLinks(ctx, scope, tier, RecentPerKind)
	if err != nil {
		return nil, fmt.Errorf("recent links: %w", err)
	}
	for _, l := range links {
		items = append(items, Item{
			Ref:       l.Ref(),
			Title:     l.Type.Name,
			OwnerID:   l.UserID,
			UpdatedAt: l.UpdatedAt,
			vec:       l.Embedding,
		})
	}

	sortByRecency(items)
	if user != nil && len(user.IntentionEmbedding) > 0 {
		rerankByIntention(items, user.IntentionEmbedding)
	}

	c.logger.Debug("chronological feed", "viewer", scope.Viewer, "tier", tier, "items", len(items))
	return items, nil
}

func sortByDistance(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Distance != items[j].Distance {
			return items[i].Distance < items[j].Distance
		}
		return items[i].Ref.ID.String() < items[j].Ref.ID.String()
	})
}

func sortByRecency(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].UpdatedAt.After(items[j].UpdatedAt)
		}
		return items[i].Ref.ID.String() < items[j].Ref.ID.String()
	})
}

// rerankByIntention reorders items in place, one rerankBatch window at a
// time, by cosine distance to the intention vector. Items without an
// embedding keep their recency order at the back of their window.
func rerankByIntention(items []Item, intention []float32) {
	for start := 0; start < len(items); start += rerankBatch {
		end := start + rerankBatch
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]
		sort.SliceStable(batch, func(i, j int) bool {
			return intentionDistance(batch[i], intention) < intentionDistance(batch[j], intention)
		})
	}
}

func intentionDistance(it Item, intention []float32) float64 {
	if len(it.vec) == 0 {
		return 1
	}
	return embedding.CosineDistance(it.vec, intention)
}
