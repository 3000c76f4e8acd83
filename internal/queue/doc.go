// Package queue persists pending book candidates awaiting user confirmation.
//
// The Store enforces one pending row per (user, fingerprint): Enqueue skips
// candidates that are empty, repeated within the batch, already on the user's
// shelf, or already pending, and the UNIQUE(user_id, status, title_author_hash)
// constraint settles concurrent inserts. Inline edits re-derive the
// fingerprint and merge into an existing pending row when they collide; the
// lower row id always survives.
//
// Rows are staging data. Confirmed candidates are deleted by the committer and
// discarded ones keep at most one row per fingerprint.
package queue
