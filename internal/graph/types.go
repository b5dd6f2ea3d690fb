package graph

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inklings/inklings/internal/embedding"
)

// Kind identifies a content variant. Links are themselves node-like
// (owned, embeddable, taggable, privacy-scoped) and may appear as link
// endpoints, so chains of links are representable.
type Kind string

const (
	KindMemo      Kind = "memo"
	KindReference Kind = "reference"
	KindInkling   Kind = "inkling"
	KindLink      Kind = "link"
	KindTag       Kind = "tag"
)

// NodeKinds are the content variants stored in the nodes table.
var NodeKinds = []Kind{KindMemo, KindReference, KindInkling}

// EndpointKinds are the variants a link may connect.
var EndpointKinds = []Kind{KindMemo, KindReference, KindInkling, KindLink}

// ValidEndpoint reports whether k can be a link endpoint.
func (k Kind) ValidEndpoint() bool {
	for _, e := range EndpointKinds {
		if k == e {
			return true
		}
	}
	return false
}

// Ref is a tagged reference to any content variant: the polymorphic
// (kind, id) pair links use for their endpoints.
type Ref struct {
	Kind Kind
	ID   uuid.UUID
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%s", r.Kind, r.ID)
}

// Privacy controls who may see a piece of content.
type Privacy string

const (
	PrivacyPrivate          Privacy = "private"
	PrivacyFriends          Privacy = "friends"
	PrivacyFriendsOfFriends Privacy = "friends_of_friends"
)

// Timestamps is the creation/update pair carried by every entity.
type Timestamps struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SourceInfo is the clipping metadata carried by references.
type SourceInfo struct {
	URL             string
	Name            string
	Authors         string
	PublicationDate *time.Time
}

// Node is a user-owned content item: a memo, reference, or inkling.
// Embedding covers title + content and is nil until first save completes
// the write path.
type Node struct {
	ID        uuid.UUID
	Kind      Kind
	UserID    uuid.UUID
	Title     string
	Content   string
	Summary   string
	Privacy   Privacy
	Embedding []float32
	Source    *SourceInfo // references only
	Timestamps
}

// Ref returns the tagged reference for this node.
func (n *Node) Ref() Ref { return Ref{Kind: n.Kind, ID: n.ID} }

// Tag is a user-scoped label, unique per (user, normalized name), with an
// embedding over its name.
type Tag struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Embedding []float32
	Timestamps
}

// Ref returns the tagged reference for this tag.
func (t *Tag) Ref() Ref { return Ref{Kind: KindTag, ID: t.ID} }

// NormalizeTagName applies the write-time normalization for tag names.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// LinkType is a user-defined relation kind with a forward and reverse
// reading ("Supports" / "Supported by"), unique per (user, name).
type LinkType struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Name        string
	ReverseName string
	Timestamps
}

// Link is a typed directed edge between two endpoints. It is node-like
// itself: owned, privacy-scoped, taggable and embeddable. Its embedding
// defaults to a blend of the relation name and both endpoint vectors.
type Link struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Type      LinkType
	Source    Ref
	Target    Ref
	Privacy   Privacy
	Embedding []float32
	Timestamps
}

// Ref returns the tagged reference for this link.
func (l *Link) Ref() Ref { return Ref{Kind: KindLink, ID: l.ID} }

// Other returns the endpoint opposite to node, and whether node is the
// link's source (the link reads in its forward direction from node).
func (l *Link) Other(node Ref) (Ref, bool) {
	if l.Source == node {
		return l.Target, true
	}
	return l.Source, false
}

// Blend weights for the default link embedding.
const (
	linkTypeWeight     float32 = 0.2
	linkEndpointWeight float32 = 0.4
)

// BlendLinkEmbedding computes the default embedding for a link:
// 0.2 x relation vector + 0.4 x source + 0.4 x target. The relation
// vector is embed(type.Name, type.ReverseName); the caller supplies all
// three because the endpoints' vectors are already stored.
func BlendLinkEmbedding(typeVec, sourceVec, targetVec []float32) []float32 {
	return embedding.WeightedSum(
		[]float32{linkTypeWeight, linkEndpointWeight, linkEndpointWeight},
		[][]float32{typeVec, sourceVec, targetVec})
}

// User owns content and participates in the friend graph. Intention is a
// free-text statement of interest; its embedding biases the chronological
// feed when present.
type User struct {
	ID                 uuid.UUID
	Username           string
	Intention          string
	IntentionEmbedding []float32
	Timestamps
}

// FriendRequest is a pending directed edge sender -> receiver. At most
// one outstanding request exists per ordered pair, and a request never
// coexists with an established friendship.
type FriendRequest struct {
	ID         uuid.UUID
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	Timestamps
}

// Query is an ad-hoc free-text search with its own ephemeral embedding.
// It is never persisted and applies no exclusions during retrieval.
type Query struct {
	Text      string
	Embedding []float32
}
