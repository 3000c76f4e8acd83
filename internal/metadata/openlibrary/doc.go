// Package openlibrary queries the Open Library search API for book records.
package openlibrary
