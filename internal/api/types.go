package api

import "shelfmark/internal/queue"

// ItemRef is one (title, author) pair for a year lookup.
type ItemRef struct {
	Title  string `json:"title" yaml:"title"`
	Author string `json:"author" yaml:"author"`
}

// PendingView is a pending row annotated with shelf membership.
type PendingView struct {
	*queue.PendingCandidate
	InShelf     bool   `json:"in_shelf"`
	ShelfBookID *int64 `json:"shelf_book_id,omitempty"`
}

// IngestResult is the reply to IngestInput: the queue outcome plus the
// transcript when the input was audio.
type IngestResult struct {
	queue.EnqueueResult
	Transcript string `json:"transcript,omitempty"`
}
