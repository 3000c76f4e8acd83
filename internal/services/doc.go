// Package services defines shared utilities consumed by the engine packages
// and the external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp the acting user, pending row IDs, operation
//     names, and correlation identifiers for logging.
//   - Structured error kinds plus the Wrap helper, so callers can tell input
//     problems, upstream failures, and a missing catalog apart without
//     inspecting message text.
//
// Subpackages hold the upstream clients (chat completions, Gemini, speech
// transcription).
package services
