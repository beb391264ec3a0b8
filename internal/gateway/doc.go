// Package gateway exposes the connectify HTTP surface.
//
// It serves the REST API (auth, users, posts, conversations, messages,
// uploads), the websocket endpoint for realtime message delivery, static
// upload files, a health check and Prometheus metrics.
//
// Request identity always comes from the JWT: the auth middleware puts
// the verified subject into the request context and handlers read it
// from there. The websocket endpoint carries the token as a query
// parameter because browser WebSocket clients cannot set headers.
//
// Error responses are JSON objects of the form {"msg": "..."}.
package gateway
