// Package main hosts the shelfmark CLI entrypoint and command graph.
//
// The Cobra command tree runs the HTTP daemon and exposes the same ingest,
// review, and confirmation operations directly against the configured
// database, which is handy for scripting imports and for operators fixing a
// user's queue by hand. Configuration resolution, logger setup, and output
// formatting live here so subcommands stay declarative.
package main
