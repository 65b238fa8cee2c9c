// Package kv defines the key-value persistence contract used by dashauth and
// ships three backends for it.
//
// # Backends
//
//   - [Memory]: process-local map with TTL support. Used by tests and by
//     embedders that do not need durability across restarts.
//   - [Redis]: any go-redis UniversalClient (standalone, sentinel, cluster).
//   - [SQLite]: a single-file database opened with the pure-Go modernc
//     driver. This is the client-local store the CLI keeps next to the user.
//
// # Contract
//
// Missing and expired keys both surface as [ErrNotFound]. Backend failures are
// wrapped with [ErrUnavailable] so callers can map them with errors.Is without
// knowing which backend is in use. A zero TTL means the key never expires.
//
// # What this package must NOT do
//
//   - Interpret stored values; they are opaque byte slices.
//   - Import dashauth or any internal package.
package kv
