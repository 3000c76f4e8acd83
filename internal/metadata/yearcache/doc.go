// Package yearcache persists publication-year lookups in a small JSON file so
// repeated lookups for the same title and author skip the external providers.
package yearcache
