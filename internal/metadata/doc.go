// Package metadata resolves external bibliographic metadata (publication year,
// ISBN) for a (title, author) pair.
//
// The Resolver fans a query out to every configured Provider (Open Library and
// Google Books in production), deduplicates the merged results by normalized
// title and author, re-scores each survivor against the request with
// textutil.Score, and only returns the best one when it clears the configured
// floor. Provider-reported relevance is never trusted. LookupYear adds
// subtitle stripping and a file-backed 24 hour cache on top.
package metadata
