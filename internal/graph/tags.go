package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// EmbedFunc computes the embedding for a (text, title) pair. It matches
// the embedding engine's Embed method, so the engine is passed in
// directly wherever the store needs a fresh vector.
type EmbedFunc func(ctx context.Context, text, title string) ([]float32, error)

const tagCols = `id, user_id, name, embedding, created_at, updated_at`

func scanTag(row pgx.Row) (*Tag, error) {
	var t Tag
	var vec *pgvector.Vector
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &vec, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.Embedding = vecSlice(vec)
	return &t, nil
}

// TagByID fetches a tag.
func (s *Store) TagByID(ctx context.Context, id uuid.UUID) (*Tag, error) {
	t, err := scanTag(s.pool.QueryRow(ctx,
		`SELECT `+tagCols+` FROM tags WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fetching tag %s: %w", id, err)
	}
	return t, nil
}

// TagsOfUser lists a user's tags ordered by name.
func (s *Store) TagsOfUser(ctx context.Context, userID uuid.UUID) ([]*Tag, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tagCols+` FROM tags WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	var tags []*Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// getOrCreateTag inside q. name must already be normalized; vector is
// only used when the tag does not exist yet.
func getOrCreateTag(ctx context.Context, q querier, userID uuid.UUID, name string, vector []float32) (*Tag, error) {
	// Insert-then-select: ON CONFLICT DO NOTHING keeps this race-free
	// under the (user_id, name) unique key.
	_, err := q.Exec(ctx,
		`INSERT INTO tags (id, user_id, name, embedding) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, name) DO NOTHING`,
		uuid.New(), userID, name, vecParam(vector))
	if err != nil {
		return nil, fmt.Errorf("creating tag %q: %w", name, err)
	}
	return scanTag(q.QueryRow(ctx,
		`SELECT `+tagCols+` FROM tags WHERE user_id = $1 AND name = $2`, userID, name))
}

// GetOrCreateTag normalizes name and returns the user's tag for it,
// creating and embedding it on first use.
func (s *Store) GetOrCreateTag(ctx context.Context, userID uuid.UUID, name string, embed EmbedFunc) (*Tag, error) {
	name = NormalizeTagName(name)
	if name == "" {
		return nil, fmt.Errorf("empty tag name")
	}
	vector, err := embed(ctx, name, "")
	if err != nil {
		return nil, fmt.Errorf("embedding tag %q: %w", name, err)
	}
	return getOrCreateTag(ctx, s.pool, userID, name, vector)
}

// CreateTags normalizes each name, gets-or-creates the owner's tag for it
// and attaches it to item — all inside one transaction, so a failure on
// any name leaves nothing attached. Embeddings for new tags are computed
// up front, outside the transaction.
func (s *Store) CreateTags(ctx context.Context, item Ref, ownerID uuid.UUID, names []string, embed EmbedFunc) ([]*Tag, error) {
	seen := make(map[string]struct{}, len(names))
	normalized := make([]string, 0, len(names))
	for _, name := range names {
		n := NormalizeTagName(name)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		normalized = append(normalized, n)
	}
	if len(normalized) == 0 {
		return nil, nil
	}

	// The provider call is the long-latency step; keep it out of the
	// transaction. The cache absorbs repeats.
	vectors := make([][]float32, len(normalized))
	for i, name := range normalized {
		vec, err := embed(ctx, name, "")
		if err != nil {
			return nil, fmt.Errorf("embedding tag %q: %w", name, err)
		}
		vectors[i] = vec
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	tags := make([]*Tag, 0, len(normalized))
	for i, name := range normalized {
		tag, err := getOrCreateTag(ctx, tx, ownerID, name, vectors[i])
		if err != nil {
			return nil, err
		}
		if err := attachTag(ctx, tx, tag, item, ownerID); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("tags attached", "item", item.String(), "count", len(tags))
	return tags, nil
}

func attachTag(ctx context.Context, q querier, tag *Tag, item Ref, ownerID uuid.UUID) error {
	if tag.UserID != ownerID {
		return fmt.Errorf("%w: tag %q", ErrCrossUserTag, tag.Name)
	}
	_, err := q.Exec(ctx,
		`INSERT INTO taggings (tag_id, item_kind, item_id) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`,
		tag.ID, item.Kind, item.ID)
	if err != nil {
		return fmt.Errorf("attaching tag %q to %s: %w", tag.Name, item, err)
	}
	return nil
}

// AttachTag attaches an existing tag to item. The tag must belong to the
// item's owner.
func (s *Store) AttachTag(ctx context.Context, tagID uuid.UUID, item Ref, ownerID uuid.UUID) error {
	tag, err := s.TagByID(ctx, tagID)
	if err != nil {
		return err
	}
	return attachTag(ctx, s.pool, tag, item, ownerID)
}

// DetachTag removes a tag from item.
func (s *Store) DetachTag(ctx context.Context, tagID uuid.UUID, item Ref) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM taggings WHERE tag_id = $1 AND item_kind = $2 AND item_id = $3`,
		tagID, item.Kind, item.ID)
	if err != nil {
		return fmt.Errorf("detaching tag: %w", err)
	}
	return nil
}

// ItemTags lists the tags attached to item, ordered by name.
func (s *Store) ItemTags(ctx context.Context, item Ref) ([]*Tag, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.user_id, t.name, t.embedding, t.created_at, t.updated_at
		FROM tags t JOIN taggings tg ON tg.tag_id = t.id
		WHERE tg.item_kind = $1 AND tg.item_id = $2
		ORDER BY t.name`, item.Kind, item.ID)
	if err != nil {
		return nil, fmt.Errorf("listing tags of %s: %w", item, err)
	}
	defer rows.Close()

	var tags []*Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// TaggedItemIDs returns ids of kind already carrying the tag; retrieval
// uses this to exclude them from "similar to tag" suggestions.
func (s *Store) TaggedItemIDs(ctx context.Context, tagID uuid.UUID, kind Kind) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT item_id FROM taggings WHERE tag_id = $1 AND item_kind = $2`, tagID, kind)
	if err != nil {
		return nil, fmt.Errorf("listing items of tag %s: %w", tagID, err)
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
	return ids, rows.Err()
}

// MergeTags moves every attachment of src onto dst (duplicates collapse
// under the taggings unique key), deletes src, and optionally renames and
// re-embeds dst — one transaction. Both tags must belong to one user.
func (s *Store) MergeTags(ctx context.Context, dstID, srcID uuid.UUID, newName string, embed EmbedFunc) (*Tag, error) {
	dst, err := s.TagByID(ctx, dstID)
	if err != nil {
		return nil, err
	}
	src, err := s.TagByID(ctx, srcID)
	if err != nil {
		return nil, err
	}
	if dst.UserID != src.UserID {
		return nil, fmt.Errorf("%w: cannot merge across users", ErrCrossUserTag)
	}

	var renameVec []float32
	if newName != "" {
		newName = NormalizeTagName(newName)
		renameVec, err = embed(ctx, newName, "")
		if err != nil {
			return nil, fmt.Errorf("embedding tag %q: %w", newName, err)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	// Retag src's items onto dst, skipping items that already carry dst.
	_, err = tx.Exec(ctx,
		`UPDATE taggings SET tag_id = $1
		WHERE tag_id = $2
		  AND NOT EXISTS (
			SELECT 1 FROM taggings d
			WHERE d.tag_id = $1 AND d.item_kind = taggings.item_kind AND d.item_id = taggings.item_id)`,
		dstID, srcID)
	if err != nil {
		return nil, fmt.Errorf("retagging: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM taggings WHERE tag_id = $1`, srcID); err != nil {
		return nil, fmt.Errorf("dropping duplicate taggings: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM tags WHERE id = $1`, srcID); err != nil {
		return nil, fmt.Errorf("deleting tag: %w", err)
	}

	if newName != "" {
		merged, err := scanTag(tx.QueryRow(ctx,
			`UPDATE tags SET name = $2, embedding = $3, updated_at = now()
			WHERE id = $1 RETURNING `+tagCols,
			dstID, newName, vecParam(renameVec)))
		if err != nil {
			return nil, fmt.Errorf("renaming tag: %w", err)
		}
		dst = merged
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("tags merged", "into", dstID, "from", srcID)
	return dst, nil
}

// DeleteTag removes a tag and its attachments. Tagged content itself is
// untouched.
func (s *Store) DeleteTag(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `DELETE FROM taggings WHERE tag_id = $1`, id); err != nil {
		return fmt.Errorf("deleting taggings: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting tag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}
