// Package session implements the labeling session engine.
//
// The Engine owns the image catalog, the undo ledger, and the navigation
// cursor for one working directory. It exposes the command surface the
// transport layer calls (label, delete, undo, navigate, preview, commit)
// and persists a durable snapshot after every mutation.
//
// Pending work is computed as a diff against a baseline captured at load,
// creation, and commit boundaries, so reloading an old session does not
// re-surface already-persisted decisions as new changes. Commit executes
// the diff against the filesystem, then rebuilds the catalog from a fresh
// scan; the filesystem is the source of truth after a commit attempt, even
// a partially failed one.
//
// Every mutating command runs under a single mutex. Listener callbacks fire
// after the command completes and must not re-enter mutating commands.
package session
