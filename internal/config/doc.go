// Package config loads, normalizes, and validates shelfmark configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY and GOOGLE_BOOKS_API_KEY. The Config type centralizes the
// matching thresholds, provider settings, and store location so the CLI and the
// HTTP server build their components from one place.
//
// Credentials needed only by some commands (model keys, the JWT secret) are
// checked by the dedicated Validate* helpers rather than by Load.
package config
