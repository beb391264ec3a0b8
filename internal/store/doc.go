// Package store provides persistence for connectify.
//
// # Overview
//
// The store owns the durable records of the system: users and the follow
// graph, conversations, the per-conversation message log, and posts with
// their likes and comments. Everything else in the codebase depends on
// the Store interface, never on SQLite directly, so the engine can be
// swapped without touching business logic.
//
// # Conversations
//
// A conversation is keyed by its unordered participant pair. The pair is
// normalized to canonical order (PairKey) and guarded by a UNIQUE index,
// so find-or-create callers racing on the same new pair get
// ErrDuplicateConversation on the losing insert and can fall back to a
// lookup.
//
// # Messages
//
// The message log is append-only. Each message gets a per-conversation
// sequence number assigned at insert time; listing orders by that
// sequence, which equals creation-time order with append-order
// tie-breaking.
//
// # Errors
//
// Lookups for absent entities return ErrNotFound. Invariant violations
// on create return ErrDuplicateConversation / ErrDuplicateUser.
// Malformed input returns ErrValidation. All other failures are wrapped
// driver errors.
package store
