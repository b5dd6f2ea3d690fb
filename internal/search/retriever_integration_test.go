package search_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/inklings/inklings/internal/graph"
	"github.com/inklings/inklings/internal/log"
	"github.com/inklings/inklings/internal/search"
	"github.com/inklings/inklings/internal/testutil"
)

// axis returns a unit vector along one dimension, optionally leaning
// toward the next dimension to control cosine distance precisely.
func axis(dim int, lean float32) []float32 {
	vec := make([]float32, testutil.VectorDim)
	vec[dim] = 1
	if lean != 0 {
		vec[dim+1] = lean
	}
	return vec
}

func TestRetrieverIntegration(t *testing.T) {
	tdb := testutil.SetupTestDB(t)
	ctx := context.Background()

	store, err := graph.NewStore(tdb.Pool, log.NewNop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	retriever := search.New(tdb.Pool, log.NewNop())

	alice, err := store.CreateUser(ctx, "alice")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	bob, err := store.CreateUser(ctx, "bob")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := store.SendFriendRequest(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("SendFriendRequest: %v", err)
	}
	if err := store.AcceptFriendRequest(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("AcceptFriendRequest: %v", err)
	}

	node := func(owner uuid.UUID, title string, privacy graph.Privacy, vec []float32) *graph.Node {
		n := &graph.Node{
			Kind: graph.KindMemo, UserID: owner, Title: title,
			Content: "content", Privacy: privacy, Embedding: vec,
		}
		if err := store.CreateNode(ctx, n); err != nil {
			t.Fatalf("CreateNode(%s): %v", title, err)
		}
		return n
	}

	exact := node(alice.ID, "exact match", graph.PrivacyPrivate, axis(0, 0))
	close_ := node(bob.ID, "close friend memo", graph.PrivacyFriends, axis(0, 0.3))
	far := node(bob.ID, "unrelated memo", graph.PrivacyFriends, axis(5, 0))
	hidden := node(bob.ID, "private but identical", graph.PrivacyPrivate, axis(0, 0))

	scope, err := store.ScopeFor(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ScopeFor: %v", err)
	}

	t.Run("orders by distance and applies threshold", func(t *testing.T) {
		hits, err := retriever.SimilarNodes(ctx, axis(0, 0), graph.KindMemo, scope, graph.TierFriends)
		if err != nil {
			t.Fatalf("SimilarNodes: %v", err)
		}
		if len(hits) != 2 {
			t.Fatalf("got %d hits, want exact and close: %+v", len(hits), hits)
		}
		if hits[0].Ref.ID != exact.ID || hits[1].Ref.ID != close_.ID {
			t.Errorf("order = %v, %v", hits[0].Ref, hits[1].Ref)
		}
		if hits[0].Distance > 1e-6 {
			t.Errorf("identical vector distance = %v", hits[0].Distance)
		}
		for _, h := range hits {
			if h.Ref.ID == far.ID {
				t.Error("orthogonal memo passed the threshold")
			}
			if h.Ref.ID == hidden.ID {
				t.Error("private memo of a friend leaked")
			}
		}
	})

	t.Run("threshold override widens the net", func(t *testing.T) {
		hits, err := retriever.SimilarNodes(ctx, axis(0, 0), graph.KindMemo, scope, graph.TierFriends,
			search.WithThreshold(1.5))
		if err != nil {
			t.Fatalf("SimilarNodes: %v", err)
		}
		found := false
		for _, h := range hits {
			found = found || h.Ref.ID == far.ID
		}
		if !found {
			t.Error("raised threshold still excluded the orthogonal memo")
		}
	})

	t.Run("exclusions and limit", func(t *testing.T) {
		hits, err := retriever.SimilarNodes(ctx, axis(0, 0), graph.KindMemo, scope, graph.TierFriends,
			search.WithExcludeIDs([]uuid.UUID{exact.ID}),
			search.WithLimit(1))
		if err != nil {
			t.Fatalf("SimilarNodes: %v", err)
		}
		if len(hits) != 1 || hits[0].Ref.ID != close_.ID {
			t.Errorf("hits = %+v, want only the close memo", hits)
		}
	})

	t.Run("tags are viewer scoped", func(t *testing.T) {
		embed := func(_ context.Context, text, _ string) ([]float32, error) {
			if text == "alpha" {
				return axis(0, 0.1), nil
			}
			return axis(7, 0), nil
		}
		if _, err := store.GetOrCreateTag(ctx, alice.ID, "alpha", embed); err != nil {
			t.Fatalf("GetOrCreateTag: %v", err)
		}
		if _, err := store.GetOrCreateTag(ctx, bob.ID, "beta", embed); err != nil {
			t.Fatalf("GetOrCreateTag: %v", err)
		}

		hits, err := retriever.SimilarTags(ctx, axis(0, 0), alice.ID, search.WithThreshold(2))
		if err != nil {
			t.Fatalf("SimilarTags: %v", err)
		}
		if len(hits) != 1 || hits[0].Title != "alpha" {
			t.Errorf("hits = %+v, want alice's tag only", hits)
		}
	})

	t.Run("links filter on endpoints", func(t *testing.T) {
		lt, err := store.CreateLinkType(ctx, bob.ID, "Supports", "Supported by")
		if err != nil {
			t.Fatalf("CreateLinkType: %v", err)
		}

		visible := &graph.Link{
			UserID: bob.ID, Type: *lt,
			Source: close_.Ref(), Target: far.Ref(),
			Privacy: graph.PrivacyFriends, Embedding: axis(0, 0.2),
		}
		if err := store.CreateLink(ctx, visible); err != nil {
			t.Fatalf("CreateLink: %v", err)
		}
		leaky := &graph.Link{
			UserID: bob.ID, Type: *lt,
			Source: close_.Ref(), Target: hidden.Ref(),
			Privacy: graph.PrivacyFriends, Embedding: axis(0, 0),
		}
		if err := store.CreateLink(ctx, leaky); err != nil {
			t.Fatalf("CreateLink: %v", err)
		}

		hits, err := retriever.SimilarLinks(ctx, axis(0, 0), scope, graph.TierFriends)
		if err != nil {
			t.Fatalf("SimilarLinks: %v", err)
		}
		if len(hits) != 1 || hits[0].Ref.ID != visible.ID {
			t.Errorf("hits = %+v, want only the fully visible link", hits)
		}
		if hits[0].Title != "Supports" {
			t.Errorf("link hit title = %q", hits[0].Title)
		}
	})
}
