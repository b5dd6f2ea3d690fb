package graph

import (
	"fmt"

	"github.com/google/uuid"
)

// Tier is an escalating visibility level. Every tier includes the ones
// below it: own ⊂ friends ⊂ fof.
type Tier string

const (
	TierOwn              Tier = "own"
	TierFriends          Tier = "friends"
	TierFriendsOfFriends Tier = "fof"
)

// Tiers lists all visibility tiers from narrowest to widest.
var Tiers = []Tier{TierOwn, TierFriends, TierFriendsOfFriends}

// ParseTier validates a tier name. Unknown names are a programming error
// and surface as ErrInvalidTier.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierOwn, TierFriends, TierFriendsOfFriends:
		return Tier(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
}

// Scope captures one viewer's position in the friend graph: their direct
// friends and the users reachable through at least one mutual friend
// (excluding the direct friends and the viewer). It is built once per
// request from two queries and then evaluated any number of times, in
// memory or rendered into SQL.
//
// Scope is immutable after construction and safe for concurrent use.
type Scope struct {
	Viewer    uuid.UUID
	FriendIDs []uuid.UUID
	MutualIDs []uuid.UUID

	friends map[uuid.UUID]struct{}
	mutuals map[uuid.UUID]struct{}
}

// NewScope builds a Scope. mutuals must already exclude the viewer and
// the direct friends.
func NewScope(viewer uuid.UUID, friends, mutuals []uuid.UUID) *Scope {
	s := &Scope{
		Viewer:    viewer,
		FriendIDs: friends,
		MutualIDs: mutuals,
		friends:   make(map[uuid.UUID]struct{}, len(friends)),
		mutuals:   make(map[uuid.UUID]struct{}, len(mutuals)),
	}
	for _, id := range friends {
		s.friends[id] = struct{}{}
	}
	for _, id := range mutuals {
		s.mutuals[id] = struct{}{}
	}
	return s
}

// Visible is the visibility predicate: whether content owned by owner
// with the given privacy setting is visible to the scope's viewer at
// tier. It is pure and monotonic in the tier.
func (s *Scope) Visible(owner uuid.UUID, privacy Privacy, tier Tier) bool {
	if owner == s.Viewer {
		return true
	}
	if tier == TierOwn {
		return false
	}

	// friends tier: direct friends see friends-or-wider content.
	if _, ok := s.friends[owner]; ok {
		if privacy == PrivacyFriends || privacy == PrivacyFriendsOfFriends {
			return true
		}
	}
	if tier == TierFriends {
		return false
	}

	// fof tier additionally admits owners sharing a mutual friend, for
	// friends_of_friends content only.
	if privacy == PrivacyFriendsOfFriends {
		if _, ok := s.mutuals[owner]; ok {
			return true
		}
	}
	return false
}

// NodeVisible applies the predicate to a node.
func (s *Scope) NodeVisible(n *Node, tier Tier) bool {
	return s.Visible(n.UserID, n.Privacy, tier)
}

// EndpointResolver resolves a link endpoint to its owner and privacy
// setting. For an endpoint that is itself a link, ends carries that
// link's own endpoints so the visibility check can continue down the
// chain; it is nil for node endpoints. ok is false when the endpoint no
// longer exists.
type EndpointResolver func(Ref) (owner uuid.UUID, privacy Privacy, ends []Ref, ok bool)

// LinkVisible reports whether a link is visible at tier: the link's own
// row must be visible and so must both endpoints, recursively — a link
// over a link is visible only when the whole chain under it is. Links
// never widen visibility beyond their endpoints.
func (s *Scope) LinkVisible(l *Link, tier Tier, resolve EndpointResolver) bool {
	if !s.Visible(l.UserID, l.Privacy, tier) {
		return false
	}
	seen := map[Ref]struct{}{l.Ref(): {}}
	return s.endpointsVisible([]Ref{l.Source, l.Target}, tier, resolve, seen)
}

// endpointsVisible walks a link's endpoint chain. seen stops the walk on
// endpoints already checked, so malformed chains cannot loop.
func (s *Scope) endpointsVisible(ends []Ref, tier Tier, resolve EndpointResolver, seen map[Ref]struct{}) bool {
	for _, end := range ends {
		if _, done := seen[end]; done {
			continue
		}
		seen[end] = struct{}{}
		owner, privacy, nested, ok := resolve(end)
		if !ok || !s.Visible(owner, privacy, tier) {
			return false
		}
		if !s.endpointsVisible(nested, tier, resolve, seen) {
			return false
		}
	}
	return true
}

// ArgList accumulates positional SQL arguments while filters are
// rendered, keeping fragment text and argument order in sync.
type ArgList struct {
	args []any
}

// Add appends v and returns its placeholder ($1, $2, ...).
func (a *ArgList) Add(v any) string {
	a.args = append(a.args, v)
	return fmt.Sprintf("$%d", len(a.args))
}

// Values returns the collected arguments in placeholder order.
func (a *ArgList) Values() []any { return a.args }

// SQLFilter renders the visibility predicate as a set-membership filter
// over alias.user_id and alias.privacy_setting, suitable for bulk
// queries: candidates are filtered in the database, never materialized
// and checked one by one.
func (s *Scope) SQLFilter(alias string, tier Tier, args *ArgList) string {
	own := fmt.Sprintf("%s.user_id = %s", alias, args.Add(s.Viewer))
	if tier == TierOwn {
		return own
	}

	friends := fmt.Sprintf(
		"(%s.privacy_setting IN ('friends', 'friends_of_friends') AND %s.user_id = ANY(%s))",
		alias, alias, args.Add(s.FriendIDs))
	if tier == TierFriends {
		return fmt.Sprintf("(%s OR %s)", own, friends)
	}

	mutual := fmt.Sprintf(
		"(%s.privacy_setting = 'friends_of_friends' AND %s.user_id = ANY(%s))",
		alias, alias, args.Add(s.MutualIDs))
	return fmt.Sprintf("(%s OR %s OR %s)", own, friends, mutual)
}

// LinkSQLFilter renders the full link predicate for bulk queries over the
// links table: the link row itself plus both endpoints must pass the
// tier's filter. Endpoints that are links are checked on their own row.
func (s *Scope) LinkSQLFilter(alias string, tier Tier, args *ArgList) string {
	parts := []string{s.SQLFilter(alias, tier, args)}
	for _, side := range []string{"source", "target"} {
		parts = append(parts, fmt.Sprintf(
			`(CASE WHEN %[1]s.%[2]s_kind = 'link'
			THEN EXISTS (SELECT 1 FROM links ep WHERE ep.id = %[1]s.%[2]s_id AND %[3]s)
			ELSE EXISTS (SELECT 1 FROM nodes ep WHERE ep.id = %[1]s.%[2]s_id AND %[4]s)
			END)`,
			alias, side,
			s.SQLFilter("ep", tier, args),
			s.SQLFilter("ep", tier, args)))
	}
	return fmt.Sprintf("(%s AND %s AND %s)", parts[0], parts[1], parts[2])
}
