// Package api is the outbound surface of shelfmark: the operations the HTTP
// daemon and the CLI call on behalf of a user.
//
// # Operations
//
// Ingest and IngestInput feed candidates into the confirmation queue, the
// latter running model extraction (text, dictated audio, or a photo) first.
// Confirm and ConfirmAll commit approved pairs to the catalog. ListPending,
// UpdatePendingField, and Discard manage the queue. LookupYears resolves
// publication years through the bibliographic providers and the year cache.
//
// # Readiness
//
// Every operation that reads or writes the catalog tables checks
// catalog.Store.Ready first and fails with services.ErrNotReady when the
// catalog owner has not installed them. LookupYears and Discard never touch
// the catalog and work on a queue-only deployment.
//
// # Wiring
//
// New builds the whole stack from a config.Config: metadata providers, the
// year cache, the resolver, the extraction model, and the transcriber. Tests
// swap the outbound pieces with WithProviders, WithModel, and WithTranscriber.
package api
