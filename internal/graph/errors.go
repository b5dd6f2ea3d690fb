package graph

import "errors"

var (
	// ErrInvalidTier indicates an unknown visibility tier name. This is a
	// programming error, not user input: fail fast.
	ErrInvalidTier = errors.New("graph: invalid visibility tier")

	// ErrDuplicateLink indicates a link of the same type already exists
	// between the ordered (source, target) pair.
	ErrDuplicateLink = errors.New("graph: duplicate link")

	// ErrCrossUserTag indicates an attempt to attach a tag owned by a
	// different user.
	ErrCrossUserTag = errors.New("graph: tag belongs to a different user")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("graph: not found")

	// ErrAlreadyFriends indicates a friend request targeting an existing
	// friendship.
	ErrAlreadyFriends = errors.New("graph: users are already friends")

	// ErrRequestPending indicates an outstanding friend request already
	// exists for the ordered (sender, receiver) pair.
	ErrRequestPending = errors.New("graph: friend request already pending")
)
