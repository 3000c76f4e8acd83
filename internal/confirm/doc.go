// Package confirm commits user-approved (title, author) pairs into the shared
// catalog and the user's library, then clears the matching pending rows.
//
// Each item resolves or creates its catalog row first, then runs a single
// transaction that backfills a missing year, links the book to the user, and
// deletes every pending row carrying either the item's fingerprint or the
// catalog row's fingerprint. Items are independent: one failure is recorded
// in the result and the batch carries on.
package confirm
