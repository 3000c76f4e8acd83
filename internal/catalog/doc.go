// Package catalog reads and writes the canonical book catalog and the
// user-to-book ownership links.
//
// The Store implements the tiered matcher: an exact fingerprint lookup first,
// then bounded LIKE scans over the normalized and raw columns ranked with
// textutil.Score. Ensure builds on it to get-or-create a catalog row, relying
// on the fingerprint uniqueness constraint to settle concurrent inserts.
//
// The catalog tables usually belong to another application. The Store never
// creates them; Ready reports ErrNotReady when they are missing.
package catalog
