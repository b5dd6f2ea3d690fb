// Package graph is the knowledge-graph substrate: typed nodes (memos,
// references, inklings), user-defined tags and link types, and typed
// directed links whose endpoints may be any node variant, including other
// links.
//
// Entities are flat structs composed of small capability values (privacy
// setting, embedding, timestamps) rather than an inheritance hierarchy;
// link endpoints are tagged (kind, id) references resolved through a
// per-kind lookup, never a generic foreign key.
//
// Visibility is a pure predicate over (viewer, owner, privacy setting,
// friend graph). A Scope captures the viewer's friend and
// friend-of-friend sets once per request; the same predicate is evaluable
// in memory (Scope.NodeVisible, Scope.LinkVisible) and as a
// set-membership SQL filter for bulk queries (Scope.SQLFilter), so feeds
// never materialize invisible candidates.
//
// Store persists the graph in PostgreSQL via pgx, with pgvector columns
// for embeddings. All multi-step mutations that must be atomic
// (CreateTags, MergeTags, AcceptFriendRequest) run inside a single
// transaction.
package graph
