package queue_test

import (
	"context"
	"errors"
	"testing"

	"shelfmark/internal/catalog"
	"shelfmark/internal/queue"
	"shelfmark/internal/services"
	"shelfmark/internal/testsupport"
	"shelfmark/internal/textutil"
)

func enqueueOne(t *testing.T, f fixture, userID int64, title, author string) int64 {
	t.Helper()
	res, err := f.queue.Enqueue(context.Background(), userID, []queue.Candidate{{Title: title, Author: author}}, textMeta())
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if res.Queued != 1 {
		t.Fatalf("expected %q to queue, got %+v", title, res)
	}
	return res.Items[0].ID
}

func TestUpdateFieldYearAndISBN(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := enqueueOne(t, f, 1, "Rayuela", "Julio Cortázar")

	res, err := f.queue.UpdateField(ctx, 1, id, queue.FieldYear, "c. 1963")
	if err != nil {
		t.Fatalf("UpdateField year: %v", err)
	}
	if res.Row.Year == nil || *res.Row.Year != 1963 || res.MergedInto != 0 {
		t.Fatalf("unexpected year edit %+v", res)
	}

	res, err = f.queue.UpdateField(ctx, 1, id, "YEAR", "0")
	if err != nil {
		t.Fatalf("UpdateField year reset: %v", err)
	}
	if res.Row.Year != nil {
		t.Fatalf("expected year cleared, got %v", *res.Row.Year)
	}

	res, err = f.queue.UpdateField(ctx, 1, id, queue.FieldISBN, " isbn: 84-376-0474-x ")
	if err != nil {
		t.Fatalf("UpdateField isbn: %v", err)
	}
	if res.Row.ExternalISBN != "84-376-0474-x" {
		t.Fatalf("unexpected isbn %q", res.Row.ExternalISBN)
	}
}

func TestUpdateFieldTitleRederivesAndRematches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := testsupport.SeedBook(t, f.catalog, "Pedro Páramo", "Juan Rulfo", nil)
	id := enqueueOne(t, f, 1, "Pedro Paramoo", "Juan Rulfo")

	res, err := f.queue.UpdateField(ctx, 1, id, queue.FieldTitle, "  Pedro Páramo ")
	if err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	row := res.Row
	if row.Title != "Pedro Páramo" || row.NormalizedTitle != "pedro paramo" {
		t.Fatalf("unexpected title columns %+v", row)
	}
	if row.Fingerprint != textutil.Fingerprint("Pedro Páramo", "Juan Rulfo") {
		t.Fatalf("fingerprint not re-derived: %s", row.Fingerprint)
	}
	if row.MatchMethod != string(catalog.MethodHash) || row.MatchedBookID == nil || *row.MatchedBookID != book.ID {
		t.Fatalf("expected rematch against catalog, got %+v", row)
	}
}

// shelfEnricher knows metadata for a fixed set of titles.
type shelfEnricher map[string]queue.Candidate

func (e shelfEnricher) Enrich(_ context.Context, c queue.Candidate) queue.Candidate {
	known, ok := e[c.Title]
	if !ok {
		return c
	}
	known.Title, known.Author = c.Title, c.Author
	return known
}

func TestUpdateFieldTitleRefreshesEnrichment(t *testing.T) {
	solitudeScore, orwellScore := 93.0, 88.0
	f := newFixture(t, queue.WithEnricher(shelfEnricher{
		"Cien años de soledad": {Year: testsupport.Year(1967), ISBN: "9780307474728", Source: "openlibrary", Score: &solitudeScore},
		"1984":                 {Year: testsupport.Year(1949), ISBN: "9780451524935", Source: "googlebooks", Score: &orwellScore},
	}))
	ctx := context.Background()
	id := enqueueOne(t, f, 1, "Cien años de soledad", "Gabriel García Márquez")

	if _, err := f.queue.UpdateField(ctx, 1, id, queue.FieldTitle, "1984"); err != nil {
		t.Fatalf("UpdateField title: %v", err)
	}
	res, err := f.queue.UpdateField(ctx, 1, id, queue.FieldAuthor, "George Orwell")
	if err != nil {
		t.Fatalf("UpdateField author: %v", err)
	}
	row := res.Row
	if row.Year == nil || *row.Year != 1949 || row.ExternalISBN != "9780451524935" || row.ExternalSource != "googlebooks" {
		t.Fatalf("expected metadata for the edited pair, got %+v", row)
	}
	if row.ExternalScore == nil || *row.ExternalScore != 88 {
		t.Fatalf("expected refreshed score, got %v", row.ExternalScore)
	}

	res, err = f.queue.UpdateField(ctx, 1, id, queue.FieldTitle, "Animal Farm")
	if err != nil {
		t.Fatalf("UpdateField unknown title: %v", err)
	}
	row = res.Row
	if row.Year != nil || row.ExternalISBN != "" || row.ExternalSource != "" || row.ExternalScore != nil {
		t.Fatalf("expected stale metadata cleared, got %+v", row)
	}
}

func TestUpdateFieldTitleClearsMetadataWithoutEnricher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.queue.Enqueue(ctx, 1, []queue.Candidate{{
		Title: "Cien años de soledad", Author: "Gabriel García Márquez",
		Year: testsupport.Year(1967), ISBN: "9780307474728", Source: "openlibrary",
	}}, textMeta())
	if err != nil || res.Queued != 1 {
		t.Fatalf("Enqueue: %+v err=%v", res, err)
	}

	edited, err := f.queue.UpdateField(ctx, 1, res.Items[0].ID, queue.FieldTitle, "1984")
	if err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	row := edited.Row
	if row.Year != nil || row.ExternalISBN != "" || row.ExternalSource != "" {
		t.Fatalf("expected metadata from the old title cleared, got %+v", row)
	}
}

func TestUpdateFieldMergeKeepsLowerID(t *testing.T) {
	tests := []struct {
		name       string
		editLower  bool
		wantMerged bool
	}{
		{name: "edit higher row", editLower: false, wantMerged: true},
		{name: "edit lower row", editLower: true, wantMerged: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			var lower, higher int64
			if tt.editLower {
				lower = enqueueOne(t, f, 1, "Dun", "Frank Herbert")
				higher = enqueueOne(t, f, 1, "Dune", "Frank Herbert")
			} else {
				lower = enqueueOne(t, f, 1, "Dune", "Frank Herbert")
				higher = enqueueOne(t, f, 1, "Dun", "Frank Herbert")
			}
			edited := higher
			if tt.editLower {
				edited = lower
			}

			res, err := f.queue.UpdateField(ctx, 1, edited, queue.FieldTitle, "DUNE")
			if err != nil {
				t.Fatalf("UpdateField: %v", err)
			}
			if res.Row.ID != lower {
				t.Fatalf("expected row %d to survive, got %d", lower, res.Row.ID)
			}
			if res.Row.Title != "DUNE" {
				t.Fatalf("expected edited title on survivor, got %q", res.Row.Title)
			}
			if (res.MergedInto != 0) != tt.wantMerged {
				t.Fatalf("unexpected MergedInto %d", res.MergedInto)
			}
			if tt.wantMerged && res.MergedInto != lower {
				t.Fatalf("expected MergedInto %d, got %d", lower, res.MergedInto)
			}
			if gone, _ := f.queue.Get(ctx, higher); gone != nil {
				t.Fatalf("expected row %d deleted", higher)
			}
			f.assertUniquePending(t)
		})
	}
}

func TestUpdateFieldGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := enqueueOne(t, f, 1, "Emma", "Jane Austen")

	tests := []struct {
		name   string
		userID int64
		rowID  int64
		field  queue.Field
		value  string
		want   error
	}{
		{"unknown field", 1, id, "status", "confirmed", services.ErrValidation},
		{"empty title", 1, id, queue.FieldTitle, "   ", services.ErrValidation},
		{"other user", 2, id, queue.FieldTitle, "Persuasion", services.ErrForbidden},
		{"missing row", 1, id + 100, queue.FieldTitle, "Persuasion", services.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.queue.UpdateField(ctx, tt.userID, tt.rowID, tt.field, tt.value)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := f.queue.Discard(ctx, 1, id); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if _, err := f.queue.UpdateField(ctx, 1, id, queue.FieldYear, "1815"); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict on discarded row, got %v", err)
	}
}

func TestDiscardReplacesOlderDiscard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := enqueueOne(t, f, 1, "Emma", "Jane Austen")
	if _, err := f.queue.Discard(ctx, 1, first); err != nil {
		t.Fatalf("Discard first: %v", err)
	}
	second := enqueueOne(t, f, 1, "Emma", "Jane Austen")
	row, err := f.queue.Discard(ctx, 1, second)
	if err != nil {
		t.Fatalf("Discard second: %v", err)
	}
	if row.Status != queue.StatusDiscarded {
		t.Fatalf("expected discarded status, got %s", row.Status)
	}
	if old, _ := f.queue.Get(ctx, first); old != nil {
		t.Fatal("expected older discarded row to be replaced")
	}
	if _, err := f.queue.Discard(ctx, 2, second); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestDeletePendingByFingerprintAndConfirmAllOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	enqueueOne(t, f, 1, "Emma", "Jane Austen")
	enqueueOne(t, f, 1, "Dune", "Frank Herbert")
	enqueueOne(t, f, 1, "Ficciones", "Jorge Luis Borges")
	enqueueOne(t, f, 2, "Emma", "Jane Austen")

	rows, err := f.queue.ListForConfirmAll(ctx, 1)
	if err != nil {
		t.Fatalf("ListForConfirmAll: %v", err)
	}
	if len(rows) != 3 || rows[0].Title != "Emma" || rows[2].Title != "Ficciones" {
		t.Fatalf("expected insertion order, got %+v", rows)
	}

	emma := textutil.Fingerprint("Emma", "Jane Austen")
	removed, err := f.queue.DeletePendingByFingerprint(ctx, 1, emma, emma, "", textutil.Fingerprint("Dune", "Frank Herbert"))
	if err != nil {
		t.Fatalf("DeletePendingByFingerprint: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 rows removed, got %d", removed)
	}
	if other, _ := f.queue.FindPending(ctx, 2, emma); other == nil {
		t.Fatal("other user's row must survive")
	}
	if none, err := f.queue.DeletePendingByFingerprint(ctx, 1); err != nil || none != 0 {
		t.Fatalf("expected no-op, got %d err=%v", none, err)
	}
}
