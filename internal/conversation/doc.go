// Package conversation implements the direct-message core: persistent
// two-party conversations with append-only message history, plus the
// in-memory room broadcaster that fans persisted messages out to live
// realtime connections.
//
// # Conversations
//
// A conversation is identified by its unordered participant pair. The
// Service guarantees exactly one conversation exists per pair: sends
// between the same two users in either direction land in the same
// conversation, created lazily on the first message.
//
// # Sending
//
// SendMessage persists first and broadcasts second. A message is only
// ever announced to a room once it is durable, so the realtime stream
// can never show a message the history endpoint does not have.
//
// # Broadcasting
//
// The Broadcaster keeps rooms keyed by conversation id. Connections
// join rooms and stay members until they disconnect; delivery is
// best-effort and non-blocking, dropping payloads for connections that
// cannot keep up rather than stalling the publisher.
package conversation
