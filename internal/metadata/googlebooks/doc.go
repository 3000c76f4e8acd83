// Package googlebooks queries the Google Books volumes API for book records.
package googlebooks
