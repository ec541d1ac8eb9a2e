// Package backend is the Project-Y API: a Postgres-backed social service
// with posts, likes, comments, reposts, a hybrid feed, messaging,
// notifications and search.
//
// The code lives in subpackages:
//
//   - internal/auth: registration, login, JWT and onboarding
//   - internal/posts: posts, likes, comments and reposts
//   - internal/feed: the hybrid followed/interest feed
//   - internal/social: profiles, follows and blocks
//   - internal/messaging: one-to-one conversations
//   - internal/notifications: notification records and reads
//   - internal/search: Postgres and Elasticsearch search
//   - internal/handlers: the HTTP API
//   - internal/websocket: realtime pushes
//   - internal/cli: the projecty terminal client
//
// Binaries are under cmd/.
package backend
