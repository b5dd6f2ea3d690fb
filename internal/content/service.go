// Package content implements the write path: creating and editing
// memos, inklings, references, links and tags, with metadata generation
// and embedding as part of the save. A write whose embedding fails is
// rejected; items never exist half-indexed.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/inklings/inklings/internal/embedding"
	"github.com/inklings/inklings/internal/graph"
	"github.com/inklings/inklings/internal/metadata"
	"github.com/inklings/inklings/internal/reference"
)

// ErrEmptyContent rejects writes with nothing to save.
var ErrEmptyContent = errors.New("content is empty")

// Embedder turns text into a vector. Satisfied by *embedding.Engine.
type Embedder interface {
	Embed(ctx context.Context, text, title string) ([]float32, error)
}

// Generator derives metadata for saved content. Satisfied by
// *metadata.Generator.
type Generator interface {
	Generate(ctx context.Context, content, title string, existingTags []string) metadata.Result
	SplitInklings(ctx context.Context, content string) ([]string, error)
}

// PageFetcher downloads reference pages. Satisfied by
// *reference.Fetcher.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*reference.Fetched, error)
}

// Service is the write path. Reads go through graph.Store and the
// search and feed packages directly.
type Service struct {
	store     *graph.Store
	embedder  Embedder
	generator Generator
	fetcher   PageFetcher
	logger    *slog.Logger
}

// NewService wires the write path together. generator and fetcher may
// be nil: without a generator saves skip metadata derivation, without a
// fetcher CreateReference fails.
func NewService(store *graph.Store, embedder Embedder, generator Generator, fetcher PageFetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		embedder:  embedder,
		generator: generator,
		fetcher:   fetcher,
		logger:    logger,
	}
}

// Draft is the caller-supplied part of a new node.
type Draft struct {
	Title   string
	Content string
	Privacy graph.Privacy
}

// CreateMemo saves a memo: metadata derivation, embedding, insert, tag
// suggestions. See createNode for the failure contract.
func (s *Service) CreateMemo(ctx context.Context, userID uuid.UUID, d Draft) (*graph.Node, error) {
	return s.createNode(ctx, userID, graph.KindMemo, d, nil)
}

// CreateInkling saves a single atomic thought.
func (s *Service) CreateInkling(ctx context.Context, userID uuid.UUID, d Draft) (*graph.Node, error) {
	return s.createNode(ctx, userID, graph.KindInkling, d, nil)
}

// CreateReference clips a URL: downloads and extracts the page, then
// saves it as a reference node carrying the source metadata.
func (s *Service) CreateReference(ctx context.Context, userID uuid.UUID, url string, privacy graph.Privacy) (*graph.Node, error) {
	if s.fetcher == nil {
		return nil, errors.New("no page fetcher configured")
	}
	fetched, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	d := Draft{Title: fetched.Title, Content: fetched.Content, Privacy: privacy}
	return s.createNode(ctx, userID, graph.KindReference, d, &fetched.Source)
}

// createNode is the shared save path. The embedding is computed before
// the insert and its failure rejects the whole write. Metadata and tag
// suggestions are best-effort.
func (s *Service) createNode(ctx context.Context, userID uuid.UUID, kind graph.Kind, d Draft, src *graph.SourceInfo) (*graph.Node, error) {
	if d.Content == "" && d.Title == "" {
		return nil, ErrEmptyContent
	}

	title, summary := d.Title, ""
	var suggested []string
	if s.generator != nil {
		existing, err := s.existingTagNames(ctx, userID)
		if err != nil {
			return nil, err
		}
		res := s.generator.Generate(ctx, d.Content, d.Title, existing)
		title, summary, suggested = res.Title, res.Summary, res.Tags
	}

	vec, err := s.embedder.Embed(ctx, d.Content, title)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", kind, err)
	}

	n := &graph.Node{
		Kind:      kind,
		UserID:    userID,
		Title:     title,
		Content:   d.Content,
		Summary:   summary,
		Privacy:   d.Privacy,
		Embedding: vec,
		Source:    src,
	}
	if err := s.store.CreateNode(ctx, n); err != nil {
		return nil, err
	}

	if len(suggested) > 0 {
		if _, err := s.store.CreateTags(ctx, n.Ref(), userID, suggested, s.embedder.Embed); err != nil {
			// The node is saved; losing suggested tags is acceptable.
			s.logger.Warn("attaching suggested tags failed",
				"node", n.Ref(), "tags", suggested, "error", err)
		}
	}
	return n, nil
}

func (s *Service) existingTagNames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	tags, err := s.store.TagsOfUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return names, nil
}

// UpdateNode applies new content to an existing node and re-embeds it,
// so retrieval always reflects the current text. Empty draft fields mean
// "unchanged", matching the privacy handling. A failed re-embedding
// rejects the edit.
func (s *Service) UpdateNode(ctx context.Context, id uuid.UUID, d Draft) (*graph.Node, error) {
	n, err := s.store.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}

	if d.Title != "" {
		n.Title = d.Title
	}
	if d.Content != "" {
		n.Content = d.Content
	}
	if d.Privacy != "" {
		n.Privacy = d.Privacy
	}

	vec, err := s.embedder.Embed(ctx, n.Content, n.Title)
	if err != nil {
		return nil, fmt.Errorf("re-embed %s: %w", n.Ref(), err)
	}
	n.Embedding = vec

	if err := s.store.UpdateNode(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// CreateLink connects two endpoints with a typed relation. The link's
// embedding blends the relation reading with both endpoint vectors; an
// endpoint without a vector contributes nothing.
func (s *Service) CreateLink(ctx context.Context, userID uuid.UUID, typeID uuid.UUID, source, target graph.Ref, privacy graph.Privacy) (*graph.Link, error) {
	srcVec, err := s.endpointVector(ctx, source)
	if err != nil {
		return nil, err
	}
	dstVec, err := s.endpointVector(ctx, target)
	if err != nil {
		return nil, err
	}

	lt, err := s.linkType(ctx, userID, typeID)
	if err != nil {
		return nil, err
	}
	l := &graph.Link{
		UserID:  userID,
		Type:    *lt,
		Source:  source,
		Target:  target,
		Privacy: privacy,
	}

	typeVec, err := s.embedder.Embed(ctx, lt.Name+" "+lt.ReverseName, "")
	if err != nil {
		return nil, fmt.Errorf("embed link type: %w", err)
	}
	l.Embedding = blendWithMissing(typeVec, srcVec, dstVec)

	if err := s.store.CreateLink(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) linkType(ctx context.Context, userID, typeID uuid.UUID) (*graph.LinkType, error) {
	types, err := s.store.LinkTypes(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, lt := range types {
		if lt.ID == typeID {
			return lt, nil
		}
	}
	return nil, fmt.Errorf("link type %s: %w", typeID, graph.ErrNotFound)
}

// endpointVector fetches the stored embedding of a link endpoint.
func (s *Service) endpointVector(ctx context.Context, end graph.Ref) ([]float32, error) {
	if !end.Kind.ValidEndpoint() {
		return nil, fmt.Errorf("%s cannot be a link endpoint", end.Kind)
	}
	if end.Kind == graph.KindLink {
		l, err := s.store.GetLink(ctx, end.ID)
		if err != nil {
			return nil, fmt.Errorf("endpoint %s: %w", end, err)
		}
		return l.Embedding, nil
	}
	n, err := s.store.GetNode(ctx, end.ID)
	if err != nil {
		return nil, fmt.Errorf("endpoint %s: %w", end, err)
	}
	return n.Embedding, nil
}

// blendWithMissing is BlendLinkEmbedding tolerating absent endpoint
// vectors: missing ones are dropped and the remaining weights keep
// their relative proportions.
func blendWithMissing(typeVec, srcVec, dstVec []float32) []float32 {
	weights := []float32{0.2}
	vectors := [][]float32{typeVec}
	if len(srcVec) > 0 {
		weights = append(weights, 0.4)
		vectors = append(vectors, srcVec)
	}
	if len(dstVec) > 0 {
		weights = append(weights, 0.4)
		vectors = append(vectors, dstVec)
	}
	if len(vectors) == 3 {
		return graph.BlendLinkEmbedding(typeVec, srcVec, dstVec)
	}

	var total float32
	for _, w := range weights {
		total += w
	}
	for i := range weights {
		weights[i] /= total
	}
	return embedding.WeightedSum(weights, vectors)
}

// HatchInklings splits a memo into atomic thoughts and saves each as an
// inkling with the memo's privacy. The memo itself is untouched.
func (s *Service) HatchInklings(ctx context.Context, memoID uuid.UUID) ([]*graph.Node, error) {
	if s.generator == nil {
		return nil, errors.New("no generator configured")
	}
	memo, err := s.store.GetNode(ctx, memoID)
	if err != nil {
		return nil, err
	}
	if memo.Kind != graph.KindMemo {
		return nil, fmt.Errorf("hatch from %s: only memos hatch inklings", memo.Kind)
	}

	drafts, err := s.generator.SplitInklings(ctx, memo.Content)
	if err != nil {
		return nil, err
	}

	inklings := make([]*graph.Node, 0, len(drafts))
	for _, text := range drafts {
		n, err := s.createNode(ctx, memo.UserID, graph.KindInkling,
			Draft{Content: text, Privacy: memo.Privacy}, nil)
		if err != nil {
			return inklings, fmt.Errorf("hatch inkling %d of %d: %w", len(inklings)+1, len(drafts), err)
		}
		inklings = append(inklings, n)
	}
	return inklings, nil
}
