// Package textutil provides the text canonicalization, identity hashing, and
// similarity scoring shared by the catalog matcher, the confirmation queue, and
// the external metadata resolver.
//
// The primary use cases are:
//   - Normalize folds markup, entities, case, diacritics, and whitespace so two
//     spellings of the same title compare equal
//   - MatchKey additionally drops stopwords and punctuation and sorts tokens,
//     for order-insensitive fuzzy comparison
//   - Fingerprint hashes the normalized (title, author) pair into the identity
//     key used by uniqueness constraints
//   - Similarity and Score produce 0-100 confidence values compatible with the
//     percentages already stored alongside queue rows
package textutil
