package api

import (
	"context"

	"github.com/agnivade/levenshtein"

	"shelfmark/internal/catalog"
	"shelfmark/internal/queue"
	"shelfmark/internal/services"
	"shelfmark/internal/textutil"
)

// ListPending returns the user's pending rows, newest first, each flagged when
// the user already owns the book.
func (s *Service) ListPending(ctx context.Context, userID int64) ([]PendingView, error) {
	ctx = services.WithOperation(ctx, "list_pending")
	if err := s.Ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.queue.ListPending(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	views := make([]PendingView, 0, len(rows))
	if len(rows) == 0 {
		return views, nil
	}
	library, err := s.catalog.Library(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	shelf := newShelfIndex(library, s.cfg.Matching.ShelfFuzzyThreshold)
	for _, row := range rows {
		view := PendingView{PendingCandidate: row}
		if book := shelf.find(row); book != nil {
			bookID := book.ID
			view.InShelf = true
			view.ShelfBookID = &bookID
		}
		views = append(views, view)
	}
	return views, nil
}

type shelfEntry struct {
	book *catalog.Book
	key  string
}

type shelfIndex struct {
	byFingerprint map[string]*catalog.Book
	entries       []shelfEntry
	threshold     float64
}

func newShelfIndex(library []catalog.Book, threshold float64) *shelfIndex {
	idx := &shelfIndex{
		byFingerprint: make(map[string]*catalog.Book, len(library)),
		entries:       make([]shelfEntry, 0, len(library)),
		threshold:     threshold,
	}
	for i := range library {
		book := &library[i]
		if _, ok := idx.byFingerprint[book.Fingerprint]; !ok {
			idx.byFingerprint[book.Fingerprint] = book
		}
		if key := textutil.MatchKey(book.Title + " " + book.Author); key != "" {
			idx.entries = append(idx.entries, shelfEntry{book: book, key: key})
		}
	}
	return idx
}

// find returns the owned book for row by fingerprint, else the closest owned
// book whose relative edit distance stays within the threshold.
func (idx *shelfIndex) find(row *queue.PendingCandidate) *catalog.Book {
	if book, ok := idx.byFingerprint[row.Fingerprint]; ok {
		return book
	}
	if idx.threshold <= 0 {
		return nil
	}
	key := textutil.MatchKey(row.Title + " " + row.Author)
	if key == "" {
		return nil
	}
	var (
		best     *catalog.Book
		bestDist = idx.threshold
	)
	for _, entry := range idx.entries {
		dist := RelativeDistance(key, entry.key)
		if dist <= bestDist && (best == nil || dist < bestDist) {
			best = entry.book
			bestDist = dist
		}
	}
	return best
}

// RelativeDistance is the Levenshtein distance between a and b divided by the
// rune length of the longer string. Two empty strings are identical.
func RelativeDistance(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(longest)
}
