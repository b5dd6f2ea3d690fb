package graph

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestParseTier(t *testing.T) {
	for _, tier := range Tiers {
		got, err := ParseTier(string(tier))
		if err != nil {
			t.Errorf("ParseTier(%q) error: %v", tier, err)
		}
		if got != tier {
			t.Errorf("ParseTier(%q) = %q", tier, got)
		}
	}

	for _, bad := range []string{"", "public", "OWN", "friends-of-friends"} {
		if _, err := ParseTier(bad); err == nil {
			t.Errorf("ParseTier(%q) accepted invalid tier", bad)
		} else if !errors.Is(err, ErrInvalidTier) {
			t.Errorf("ParseTier(%q) error = %v, want ErrInvalidTier", bad, err)
		}
	}
}

// testGraph is the three-user arrangement used across the visibility
// tests: viewer <-> friend are direct friends, friend <-> stranger are
// direct friends, so stranger is reachable from viewer through one
// mutual friend.
type testGraph struct {
	viewer, friend, stranger uuid.UUID
	scope                    *Scope
}

func newTestGraph() *testGraph {
	g := &testGraph{
		viewer:   uuid.New(),
		friend:   uuid.New(),
		stranger: uuid.New(),
	}
	g.scope = NewScope(g.viewer,
		[]uuid.UUID{g.friend},
		[]uuid.UUID{g.stranger})
	return g
}

func TestVisible(t *testing.T) {
	g := newTestGraph()

	tests := []struct {
		name    string
		owner   uuid.UUID
		privacy Privacy
		tier    Tier
		want    bool
	}{
		{"own content always visible", g.viewer, PrivacyPrivate, TierOwn, true},
		{"own content visible at wider tiers", g.viewer, PrivacyPrivate, TierFriendsOfFriends, true},

		{"friend content hidden at own tier", g.friend, PrivacyFriendsOfFriends, TierOwn, false},
		{"friend private content hidden", g.friend, PrivacyPrivate, TierFriends, false},
		{"friend friends content visible at friends tier", g.friend, PrivacyFriends, TierFriends, true},
		{"friend fof content visible at friends tier", g.friend, PrivacyFriendsOfFriends, TierFriends, true},

		{"mutual hidden at friends tier", g.stranger, PrivacyFriendsOfFriends, TierFriends, false},
		{"mutual fof content visible at fof tier", g.stranger, PrivacyFriendsOfFriends, TierFriendsOfFriends, true},
		{"mutual friends content hidden at fof tier", g.stranger, PrivacyFriends, TierFriendsOfFriends, false},
		{"mutual private content hidden at fof tier", g.stranger, PrivacyPrivate, TierFriendsOfFriends, false},

		{"unrelated owner never visible", uuid.New(), PrivacyFriendsOfFriends, TierFriendsOfFriends, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.scope.Visible(tt.owner, tt.privacy, tt.tier); got != tt.want {
				t.Errorf("Visible(%s, %s, %s) = %v, want %v",
					tt.owner, tt.privacy, tt.tier, got, tt.want)
			}
		})
	}
}

// Visibility must be monotonic: anything visible at a narrow tier stays
// visible at every wider tier.
func TestVisibleMonotonic(t *testing.T) {
	g := newTestGraph()
	owners := []uuid.UUID{g.viewer, g.friend, g.stranger, uuid.New()}
	privacies := []Privacy{PrivacyPrivate, PrivacyFriends, PrivacyFriendsOfFriends}

	for _, owner := range owners {
		for _, privacy := range privacies {
			prev := false
			for _, tier := range Tiers {
				got := g.scope.Visible(owner, privacy, tier)
				if prev && !got {
					t.Errorf("Visible(%s, %s, %s) = false after true at a narrower tier",
						owner, privacy, tier)
				}
				prev = got
			}
		}
	}
}

func TestLinkVisible(t *testing.T) {
	g := newTestGraph()

	ownNode := Ref{Kind: KindMemo, ID: uuid.New()}
	friendShared := Ref{Kind: KindInkling, ID: uuid.New()}
	friendPrivate := Ref{Kind: KindInkling, ID: uuid.New()}
	gone := Ref{Kind: KindMemo, ID: uuid.New()}

	resolve := func(r Ref) (uuid.UUID, Privacy, []Ref, bool) {
		switch r {
		case ownNode:
			return g.viewer, PrivacyPrivate, nil, true
		case friendShared:
			return g.friend, PrivacyFriends, nil, true
		case friendPrivate:
			return g.friend, PrivacyPrivate, nil, true
		}
		return uuid.UUID{}, "", nil, false
	}

	link := func(owner uuid.UUID, privacy Privacy, src, dst Ref) *Link {
		return &Link{
			ID:      uuid.New(),
			UserID:  owner,
			Privacy: privacy,
			Source:  src,
			Target:  dst,
		}
	}

	tests := []struct {
		name string
		link *Link
		tier Tier
		want bool
	}{
		{"own link between own and shared endpoint",
			link(g.viewer, PrivacyPrivate, ownNode, friendShared), TierFriends, true},
		{"friend link visible when row and endpoints pass",
			link(g.friend, PrivacyFriends, friendShared, friendShared), TierFriends, true},
		{"hidden endpoint hides the link",
			link(g.friend, PrivacyFriends, friendShared, friendPrivate), TierFriends, false},
		{"hidden link row hides visible endpoints",
			link(g.friend, PrivacyPrivate, friendShared, friendShared), TierFriends, false},
		{"dangling endpoint hides the link",
			link(g.viewer, PrivacyPrivate, ownNode, gone), TierOwn, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.scope.LinkVisible(tt.link, tt.tier, resolve); got != tt.want {
				t.Errorf("LinkVisible = %v, want %v", got, tt.want)
			}
		})
	}
}

// A link endpoint may itself be a link; LinkVisible walks the whole
// chain under it.
func TestLinkVisibleChained(t *testing.T) {
	g := newTestGraph()

	a := Ref{Kind: KindMemo, ID: uuid.New()}
	b := Ref{Kind: KindMemo, ID: uuid.New()}
	privacy := map[Ref]Privacy{
		a: PrivacyFriends,
		b: PrivacyFriends,
	}
	inner := &Link{
		ID: uuid.New(), UserID: g.friend, Privacy: PrivacyPrivate,
		Source: a, Target: b,
	}
	outer := &Link{
		ID: uuid.New(), UserID: g.friend, Privacy: PrivacyFriends,
		Source: inner.Ref(), Target: a,
	}

	resolve := func(r Ref) (uuid.UUID, Privacy, []Ref, bool) {
		switch r {
		case a, b:
			return g.friend, privacy[r], nil, true
		case inner.Ref():
			return inner.UserID, inner.Privacy, []Ref{inner.Source, inner.Target}, true
		}
		return uuid.UUID{}, "", nil, false
	}

	if g.scope.LinkVisible(outer, TierFriends, resolve) {
		t.Error("link over a private inner link leaked through")
	}

	inner.Privacy = PrivacyFriends
	if !g.scope.LinkVisible(outer, TierFriends, resolve) {
		t.Error("link over a shared inner link should be visible")
	}

	// The inner link's row being visible is not enough: its own
	// endpoints must pass too.
	privacy[b] = PrivacyPrivate
	if g.scope.LinkVisible(outer, TierFriends, resolve) {
		t.Error("private endpoint of the inner link leaked through the chain")
	}
}

func TestSQLFilter(t *testing.T) {
	g := newTestGraph()

	args := &ArgList{}
	frag := g.scope.SQLFilter("n", TierOwn, args)
	if frag != "n.user_id = $1" {
		t.Errorf("own tier fragment = %q", frag)
	}
	if vals := args.Values(); len(vals) != 1 || vals[0] != g.viewer {
		t.Errorf("own tier args = %v", vals)
	}

	args = &ArgList{}
	frag = g.scope.SQLFilter("n", TierFriends, args)
	if !strings.Contains(frag, "n.user_id = ANY($2)") {
		t.Errorf("friends tier fragment missing friend set: %q", frag)
	}
	if strings.Contains(frag, "privacy_setting = 'friends_of_friends'") {
		t.Errorf("friends tier fragment includes mutual clause: %q", frag)
	}
	if len(args.Values()) != 2 {
		t.Errorf("friends tier args = %v", args.Values())
	}

	args = &ArgList{}
	frag = g.scope.SQLFilter("n", TierFriendsOfFriends, args)
	if !strings.Contains(frag, "ANY($3)") {
		t.Errorf("fof tier fragment missing mutual set: %q", frag)
	}
	if len(args.Values()) != 3 {
		t.Errorf("fof tier args = %v", args.Values())
	}
}

func TestLinkSQLFilterCoversEndpoints(t *testing.T) {
	g := newTestGraph()

	args := &ArgList{}
	frag := g.scope.LinkSQLFilter("l", TierFriends, args)

	for _, want := range []string{
		"l.user_id",
		"l.source_kind = 'link'",
		"l.target_kind = 'link'",
		"FROM links ep",
		"FROM nodes ep",
	} {
		if !strings.Contains(frag, want) {
			t.Errorf("fragment missing %q:\n%s", want, frag)
		}
	}

	// One filter for the row, two per endpoint side (link and node
	// branches), two args each at the friends tier.
	if got := len(args.Values()); got != 10 {
		t.Errorf("collected %d args, want 10", got)
	}
}

func TestArgList(t *testing.T) {
	args := &ArgList{}
	if p := args.Add("a"); p != "$1" {
		t.Errorf("first placeholder = %q", p)
	}
	if p := args.Add(42); p != "$2" {
		t.Errorf("second placeholder = %q", p)
	}
	vals := args.Values()
	if len(vals) != 2 || vals[0] != "a" || vals[1] != 42 {
		t.Errorf("values = %v", vals)
	}
}
