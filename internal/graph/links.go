package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

const linkCols = `l.id, l.user_id, l.privacy_setting, l.embedding,
	l.source_kind, l.source_id, l.target_kind, l.target_id, l.created_at, l.updated_at,
	lt.id, lt.user_id, lt.name, lt.reverse_name, lt.created_at, lt.updated_at`

func scanLink(row pgx.Row) (*Link, error) {
	var l Link
	var vec *pgvector.Vector
	err := row.Scan(&l.ID, &l.UserID, &l.Privacy, &vec,
		&l.Source.Kind, &l.Source.ID, &l.Target.Kind, &l.Target.ID,
		&l.CreatedAt, &l.UpdatedAt,
		&l.Type.ID, &l.Type.UserID, &l.Type.Name, &l.Type.ReverseName,
		&l.Type.CreatedAt, &l.Type.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	l.Embedding = vecSlice(vec)
	return &l, nil
}

func scanLinks(rows pgx.Rows) ([]*Link, error) {
	defer rows.Close()
	var links []*Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// CreateLinkType registers a relation kind for a user.
func (s *Store) CreateLinkType(ctx context.Context, userID uuid.UUID, name, reverseName string) (*LinkType, error) {
	var lt LinkType
	err := s.pool.QueryRow(ctx,
		`INSERT INTO link_types (id, user_id, name, reverse_name) VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, name, reverse_name, created_at, updated_at`,
		uuid.New(), userID, name, reverseName).
		Scan(&lt.ID, &lt.UserID, &lt.Name, &lt.ReverseName, &lt.CreatedAt, &lt.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating link type %q: %w", name, err)
	}
	return &lt, nil
}

// LinkTypes lists a user's relation kinds ordered by name.
func (s *Store) LinkTypes(ctx context.Context, userID uuid.UUID) ([]*LinkType, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, reverse_name, created_at, updated_at
		FROM link_types WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing link types: %w", err)
	}
	defer rows.Close()

	var types []*LinkType
	for rows.Next() {
		var lt LinkType
		if err := rows.Scan(&lt.ID, &lt.UserID, &lt.Name, &lt.ReverseName,
			&lt.CreatedAt, &lt.UpdatedAt); err != nil {
			return nil, err
		}
		types = append(types, &lt)
	}
	return types, rows.Err()
}

// CreateLink inserts a typed directed edge. At most one link of a given
// type may exist per ordered (source, target) pair; a second attempt
// returns ErrDuplicateLink. The caller computes the blended embedding
// beforehand (see BlendLinkEmbedding).
func (s *Store) CreateLink(ctx context.Context, l *Link) error {
	if !l.Source.Kind.ValidEndpoint() || !l.Target.Kind.ValidEndpoint() {
		return fmt.Errorf("invalid endpoint kinds %q -> %q", l.Source.Kind, l.Target.Kind)
	}
	if l.Privacy == "" {
		l.Privacy = PrivacyPrivate
	}
	l.ID = uuid.New()

	err := s.pool.QueryRow(ctx,
		`INSERT INTO links (id, user_id, link_type_id, source_kind, source_id,
			target_kind, target_id, privacy_setting, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		l.ID, l.UserID, l.Type.ID, l.Source.Kind, l.Source.ID,
		l.Target.Kind, l.Target.ID, l.Privacy, vecParam(l.Embedding)).
		Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return fmt.Errorf("%w: %s -[%s]-> %s", ErrDuplicateLink, l.Source, l.Type.Name, l.Target)
		}
		return fmt.Errorf("creating link: %w", err)
	}
	s.logger.Debug("link created",
		"id", l.ID, "type", l.Type.Name, "source", l.Source.String(), "target", l.Target.String())
	return nil
}

// GetLink fetches a link by id.
func (s *Store) GetLink(ctx context.Context, id uuid.UUID) (*Link, error) {
	l, err := scanLink(s.pool.QueryRow(ctx,
		`SELECT `+linkCols+` FROM links l JOIN link_types lt ON lt.id = l.link_type_id
		WHERE l.id = $1`, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fetching link %s: %w", id, err)
	}
	return l, nil
}

// DeleteLink removes a link and its taggings.
func (s *Store) DeleteLink(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx,
		`DELETE FROM taggings WHERE item_kind = 'link' AND item_id = $1`, id); err != nil {
		return fmt.Errorf("deleting taggings: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM links WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// AllLinks returns every link where node is source or target, filtered to
// those visible to the scope's viewer at tier, ordered by link type name.
func (s *Store) AllLinks(ctx context.Context, node Ref, scope *Scope, tier Tier) ([]*Link, error) {
	args := &ArgList{}
	kind := args.Add(node.Kind)
	id := args.Add(node.ID)
	vis := scope.LinkSQLFilter("l", tier, args)

	query := fmt.Sprintf(
		`SELECT %s FROM links l JOIN link_types lt ON lt.id = l.link_type_id
		WHERE ((l.source_kind = %s AND l.source_id = %s) OR (l.target_kind = %s AND l.target_id = %s))
		  AND %s
		ORDER BY lt.name, l.id`,
		linkCols, kind, id, kind, id, vis)

	rows, err := s.pool.Query(ctx, query, args.Values()...)
	if err != nil {
		return nil, fmt.Errorf("listing links of %s: %w", node, err)
	}
	return scanLinks(rows)
}

// LinkDirection distinguishes whether the focal node is the link's source.
type LinkDirection string

const (
	DirectionOutgoing LinkDirection = "outgoing"
	DirectionIncoming LinkDirection = "incoming"
)

// LinkGroup is one "related by relation X" cluster: all the opposite
// endpoints reachable from a node over one link type in one direction.
type LinkGroup struct {
	Type      LinkType
	Direction LinkDirection
	Others    []Ref
}

// Label returns the human reading for the group: the forward name for
// outgoing links, the reverse name for incoming ones.
func (g *LinkGroup) Label() string {
	if g.Direction == DirectionIncoming && g.Type.ReverseName != "" {
		return g.Type.ReverseName
	}
	return g.Type.Name
}

// GroupLinks partitions links by (type, direction) relative to node,
// collecting the opposite endpoint of each link. Pure; order follows the
// input, which AllLinks keeps sorted by type name.
func GroupLinks(node Ref, links []*Link) []*LinkGroup {
	index := make(map[string]*LinkGroup)
	var groups []*LinkGroup
	for _, l := range links {
		other, outgoing := l.Other(node)
		dir := DirectionIncoming
		if outgoing {
			dir = DirectionOutgoing
		}
		key := l.Type.ID.String() + "/" + string(dir)
		g, ok := index[key]
		if !ok {
			g = &LinkGroup{Type: l.Type, Direction: dir}
			index[key] = g
			groups = append(groups, g)
		}
		g.Others = append(g.Others, other)
	}
	return groups
}

// LinkGroups returns the visible "related by relation X" clusters for a
// node.
func (s *Store) LinkGroups(ctx context.Context, node Ref, scope *Scope, tier Tier) ([]*LinkGroup, error) {
	links, err := s.AllLinks(ctx, node, scope, tier)
	if err != nil {
		return nil, err
	}
	return GroupLinks(node, links), nil
}

// RelatedIDs returns the ids of kind already directly linked to node,
// including node's own id when kind matches. Used to exclude
// already-connected items from "suggested connection" retrieval.
func (s *Store) RelatedIDs(ctx context.Context, node Ref, kind Kind) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT source_id AS other FROM links
		WHERE target_kind = $1 AND target_id = $2 AND source_kind = $3
		UNION
		SELECT target_id FROM links
		WHERE source_kind = $1 AND source_id = $2 AND target_kind = $3`,
		node.Kind, node.ID, kind)
	if err != nil {
		return nil, fmt.Errorf("listing related %s of %s: %w", kind, node, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Link candidates additionally exclude the links touching the node
	// itself: an edge is already a direct connection.
	if kind == KindLink {
		touching, err := s.pool.Query(ctx,
			`SELECT id FROM links
			WHERE (source_kind = $1 AND source_id = $2) OR (target_kind = $1 AND target_id = $2)`,
			node.Kind, node.ID)
		if err != nil {
			return nil, fmt.Errorf("listing links touching %s: %w", node, err)
		}
		defer touching.Close()
		for touching.Next() {
			var id uuid.UUID
			if err := touching.Scan(&id); err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		if err := touching.Err(); err != nil {
			return nil, err
		}
	}

	if node.Kind == kind {
		ids = append(ids, node.ID)
	}
	return ids, nil
}

// ResolveEndpoint returns an EndpointResolver backed by the store, for
// in-memory link visibility checks. Link endpoints report their own
// endpoints too, so LinkVisible can walk the whole chain.
func (s *Store) ResolveEndpoint(ctx context.Context) EndpointResolver {
	return func(r Ref) (uuid.UUID, Privacy, []Ref, bool) {
		if r.Kind == KindLink {
			l, err := s.GetLink(ctx, r.ID)
			if err != nil {
				return uuid.Nil, "", nil, false
			}
			return l.UserID, l.Privacy, []Ref{l.Source, l.Target}, true
		}
		n, err := s.GetNode(ctx, r.ID)
		if err != nil {
			return uuid.Nil, "", nil, false
		}
		return n.UserID, n.Privacy, nil, true
	}
}
