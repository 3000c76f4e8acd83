// Package preflight provides readiness checks for the directories, database
// tables, credentials, and upstream services shelfmark depends on.
//
// The CLI "shelfmark doctor" command runs RunAll and prints one line per
// check. Offline checks only inspect local state; online checks also call the
// extraction model and each bibliographic provider with a tiny query.
package preflight
