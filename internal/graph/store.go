package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists the knowledge graph in PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines. Reads see some
// consistent prior state; a similarity query racing a write may miss a
// just-written embedding and self-corrects on the next request.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a Store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Pool exposes the underlying connection pool for components that issue
// their own read-only queries (similarity retrieval).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// vecParam converts a vector for binding; nil stays NULL.
func vecParam(v []float32) any {
	if v == nil {
		return nil
	}
	return pgvector.NewVector(v)
}

// vecSlice unwraps a nullable scanned vector.
func vecSlice(v *pgvector.Vector) []float32 {
	if v == nil {
		return nil
	}
	return v.Slice()
}

// isUniqueViolation reports whether err is a unique-constraint violation,
// optionally on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

const userCols = `id, username, intention, intention_embedding, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var intention *string
	var vec *pgvector.Vector
	err := row.Scan(&u.ID, &u.Username, &intention, &vec, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if intention != nil {
		u.Intention = *intention
	}
	u.IntentionEmbedding = vecSlice(vec)
	return &u, nil
}

// CreateUser registers a user.
func (s *Store) CreateUser(ctx context.Context, username string) (*User, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, username) VALUES ($1, $2) RETURNING `+userCols,
		uuid.New(), username)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("creating user %q: %w", username, err)
	}
	return u, nil
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("fetching user %s: %w", id, err)
	}
	return u, nil
}

// UserByName fetches a user by username.
func (s *Store) UserByName(ctx context.Context, username string) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE username = $1`, username))
	if err != nil {
		return nil, fmt.Errorf("fetching user %q: %w", username, err)
	}
	return u, nil
}

// SetIntention stores a user's free-text statement of interest together
// with its embedding, used to bias the chronological feed.
func (s *Store) SetIntention(ctx context.Context, userID uuid.UUID, intention string, vector []float32) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET intention = $2, intention_embedding = $3, updated_at = now() WHERE id = $1`,
		userID, intention, vecParam(vector))
	if err != nil {
		return fmt.Errorf("setting intention for %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SendFriendRequest records a pending directed request. At most one
// outstanding request may exist per ordered (sender, receiver) pair, and
// a request cannot coexist with an established friendship.
func (s *Store) SendFriendRequest(ctx context.Context, sender, receiver uuid.UUID) (*FriendRequest, error) {
	var friends bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM friendships WHERE user_id = $1 AND friend_id = $2)`,
		sender, receiver).Scan(&friends)
	if err != nil {
		return nil, fmt.Errorf("checking friendship: %w", err)
	}
	if friends {
		return nil, ErrAlreadyFriends
	}

	var fr FriendRequest
	err = s.pool.QueryRow(ctx,
		`INSERT INTO friend_requests (id, sender_id, receiver_id) VALUES ($1, $2, $3)
		RETURNING id, sender_id, receiver_id, created_at, updated_at`,
		uuid.New(), sender, receiver).
		Scan(&fr.ID, &fr.SenderID, &fr.ReceiverID, &fr.CreatedAt, &fr.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, ErrRequestPending
		}
		return nil, fmt.Errorf("creating friend request: %w", err)
	}
	return &fr, nil
}

// AcceptFriendRequest converts a pending request into a symmetric
// friendship. Both directions are materialized and the request removed in
// one transaction.
func (s *Store) AcceptFriendRequest(ctx context.Context, sender, receiver uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	tag, err := tx.Exec(ctx,
		`DELETE FROM friend_requests WHERE sender_id = $1 AND receiver_id = $2`,
		sender, receiver)
	if err != nil {
		return fmt.Errorf("deleting friend request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO friendships (user_id, friend_id) VALUES ($1, $2), ($2, $1)
		ON CONFLICT DO NOTHING`,
		sender, receiver)
	if err != nil {
		return fmt.Errorf("creating friendship: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("friend request accepted", "sender", sender, "receiver", receiver)
	return nil
}

// DeclineFriendRequest removes a pending request without creating a
// friendship.
func (s *Store) DeclineFriendRequest(ctx context.Context, sender, receiver uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM friend_requests WHERE sender_id = $1 AND receiver_id = $2`,
		sender, receiver)
	if err != nil {
		return fmt.Errorf("deleting friend request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FriendIDs returns the user's direct friends.
func (s *Store) FriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT friend_id FROM friendships WHERE user_id = $1 ORDER BY friend_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing friends of %s: %w", userID, err)
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

// ScopeFor builds the viewer's visibility scope: direct friends plus
// users sharing at least one mutual friend (excluding the direct friends
// and the viewer). Two queries, evaluated once per request.
func (s *Store) ScopeFor(ctx context.Context, viewer uuid.UUID) (*Scope, error) {
	friends, err := s.FriendIDs(ctx, viewer)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT fof.friend_id
		FROM friendships f
		JOIN friendships fof ON fof.user_id = f.friend_id
		WHERE f.user_id = $1
		  AND fof.friend_id <> $1
		  AND fof.friend_id NOT IN (SELECT friend_id FROM friendships WHERE user_id = $1)
		ORDER BY fof.friend_id`,
		viewer)
	if err != nil {
		return nil, fmt.Errorf("listing friends-of-friends of %s: %w", viewer, err)
	}
	defer rows.Close()

	var mutuals []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		mutuals = append(mutuals, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return NewScope(viewer, friends, mutuals), nil
}
