// Package daemon runs the long-lived shelfmark HTTP service.
//
// It wires configuration, the database handle, and the api.Service into a
// single lifecycle guarded by a flock-based instance lock, and serves the
// versioned JSON API with gin. Every /api/v1 route requires a bearer JWT whose
// user_id claim selects the library the request acts on; /healthz is public
// and reports catalog readiness.
//
// Keep request plumbing here (routing, auth, decoding, error mapping). Domain
// behavior belongs to the api package and the stores below it.
package daemon
