package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

const nodeCols = `id, kind, user_id, title, content, summary, privacy_setting, embedding,
	source_url, source_name, source_authors, publication_date, created_at, updated_at`

func scanNode(row pgx.Row) (*Node, error) {
	var n Node
	var vec *pgvector.Vector
	var srcURL, srcName, srcAuthors *string
	var pubDate *time.Time
	err := row.Scan(&n.ID, &n.Kind, &n.UserID, &n.Title, &n.Content, &n.Summary,
		&n.Privacy, &vec, &srcURL, &srcName, &srcAuthors, &pubDate,
		&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	n.Embedding = vecSlice(vec)
	if srcURL != nil || srcName != nil || srcAuthors != nil || pubDate != nil {
		n.Source = &SourceInfo{PublicationDate: pubDate}
		if srcURL != nil {
			n.Source.URL = *srcURL
		}
		if srcName != nil {
			n.Source.Name = *srcName
		}
		if srcAuthors != nil {
			n.Source.Authors = *srcAuthors
		}
	}
	return &n, nil
}

func scanNodes(rows pgx.Rows) ([]*Node, error) {
	defer rows.Close()
	var nodes []*Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func sourceParams(src *SourceInfo) (url, name, authors any, pubDate any) {
	if src == nil {
		return nil, nil, nil, nil
	}
	return src.URL, src.Name, src.Authors, src.PublicationDate
}

// CreateNode inserts a node. The caller is responsible for having run the
// write path (metadata generation, embedding) first; n.ID and timestamps
// are assigned here.
func (s *Store) CreateNode(ctx context.Context, n *Node) error {
	switch n.Kind {
	case KindMemo, KindReference, KindInkling:
	default:
		return fmt.Errorf("invalid node kind %q", n.Kind)
	}
	if n.Privacy == "" {
		n.Privacy = PrivacyPrivate
	}
	n.ID = uuid.New()

	srcURL, srcName, srcAuthors, pubDate := sourceParams(n.Source)
	err := s.pool.QueryRow(ctx,
		`INSERT INTO nodes (id, kind, user_id, title, content, summary, privacy_setting,
			embedding, source_url, source_name, source_authors, publication_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		n.ID, n.Kind, n.UserID, n.Title, n.Content, n.Summary, n.Privacy,
		vecParam(n.Embedding), srcURL, srcName, srcAuthors, pubDate).
		Scan(&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating %s: %w", n.Kind, err)
	}
	s.logger.Debug("node created", "kind", n.Kind, "id", n.ID, "user", n.UserID)
	return nil
}

// UpdateNode persists edits to a node's content fields, embedding and
// privacy. Content edits re-embed before save, so a stored vector never
// goes stale against its text.
func (s *Store) UpdateNode(ctx context.Context, n *Node) error {
	srcURL, srcName, srcAuthors, pubDate := sourceParams(n.Source)
	err := s.pool.QueryRow(ctx,
		`UPDATE nodes SET title = $2, content = $3, summary = $4, privacy_setting = $5,
			embedding = $6, source_url = $7, source_name = $8, source_authors = $9,
			publication_date = $10, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		n.ID, n.Title, n.Content, n.Summary, n.Privacy,
		vecParam(n.Embedding), srcURL, srcName, srcAuthors, pubDate).
		Scan(&n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("updating node %s: %w", n.ID, err)
	}
	return nil
}

// GetNode fetches a node by id.
func (s *Store) GetNode(ctx context.Context, id uuid.UUID) (*Node, error) {
	n, err := scanNode(s.pool.QueryRow(ctx,
		`SELECT `+nodeCols+` FROM nodes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fetching node %s: %w", id, err)
	}
	return n, nil
}

// DeleteNode removes a node together with its join rows: taggings and any
// links touching it. Linked content itself is never cascade-deleted.
func (s *Store) DeleteNode(ctx context.Context, id uuid.UUID, kind Kind) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx,
		`DELETE FROM taggings WHERE item_kind = $1 AND item_id = $2`, kind, id); err != nil {
		return fmt.Errorf("deleting taggings: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM links
		WHERE (source_kind = $1 AND source_id = $2) OR (target_kind = $1 AND target_id = $2)`,
		kind, id); err != nil {
		return fmt.Errorf("deleting links: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM nodes WHERE id = $1 AND kind = $2`, id, kind)
	if err != nil {
		return fmt.Errorf("deleting node: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// RecentNodes returns the most recently updated nodes of kind visible to
// the scope's viewer at tier, newest first.
func (s *Store) RecentNodes(ctx context.Context, kind Kind, scope *Scope, tier Tier, limit int) ([]*Node, error) {
	args := &ArgList{}
	vis := scope.SQLFilter("n", tier, args)
	query := fmt.Sprintf(
		`SELECT %s FROM nodes n WHERE n.kind = %s AND %s
		ORDER BY n.updated_at DESC, n.id LIMIT %s`,
		nodeCols, args.Add(kind), vis, args.Add(limit))

	rows, err := s.pool.Query(ctx, query, args.Values()...)
	if err != nil {
		return nil, fmt.Errorf("listing recent %s: %w", kind, err)
	}
	return scanNodes(rows)
}

// RecentLinks returns the most recently updated links visible to the
// scope's viewer at tier, newest first.
func (s *Store) RecentLinks(ctx context.Context, scope *Scope, tier Tier, limit int) ([]*Link, error) {
	args := &ArgList{}
	vis := scope.LinkSQLFilter("l", tier, args)
	query := fmt.Sprintf(
		`SELECT %s FROM links l JOIN link_types lt ON lt.id = l.link_type_id
		WHERE %s
		ORDER BY l.updated_at DESC, l.id LIMIT %s`,
		linkCols, vis, args.Add(limit))

	rows, err := s.pool.Query(ctx, query, args.Values()...)
	if err != nil {
		return nil, fmt.Errorf("listing recent links: %w", err)
	}
	return scanLinks(rows)
}
