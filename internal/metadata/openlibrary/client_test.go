package openlibrary_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"shelfmark/internal/metadata/openlibrary"
)

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := openlibrary.New("  ", "ua"); err == nil {
		t.Fatal("expected error when base url missing")
	}
}

func TestSearchMapsDocs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.json" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("title") != "The Hobbit" || q.Get("author") != "Tolkien" || q.Get("limit") != "3" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("expected json accept header, got %q", r.Header.Get("Accept"))
		}
		if r.Header.Get("User-Agent") != "shelfmark-test" {
			t.Errorf("expected user agent, got %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"numFound":4,"docs":[
			{"title":"The Hobbit","author_name":["J.R.R. Tolkien"],"isbn":["0261102214","9780261102217"],"first_publish_year":1937},
			{"title_suggest":"Hobbit, The","author_alternative_name":["John Ronald Reuel Tolkien"],"isbn":["0618260307"],"publish_year":[2001]},
			{"author_name":["Nobody"]},
			{"title":"The Hobbit (illustrated)","author_name":[],"publish_date":["October 2012"]}
		]}`))
	}))
	t.Cleanup(server.Close)

	client, err := openlibrary.New(server.URL+"/", "shelfmark-test")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	records, err := client.Search(context.Background(), "The Hobbit", "Tolkien", 3)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected untitled doc to be dropped, got %d records", len(records))
	}

	first := records[0]
	if first.Title != "The Hobbit" || first.Author != "J.R.R. Tolkien" || first.ISBN != "9780261102217" {
		t.Fatalf("unexpected first record %+v", first)
	}
	if first.Year == nil || *first.Year != 1937 {
		t.Fatalf("expected first_publish_year, got %v", first.Year)
	}

	second := records[1]
	if second.Title != "Hobbit, The" || second.Author != "John Ronald Reuel Tolkien" || second.ISBN != "0618260307" {
		t.Fatalf("unexpected fallback mapping %+v", second)
	}
	if second.Year == nil || *second.Year != 2001 {
		t.Fatalf("expected publish_year fallback, got %v", second.Year)
	}

	third := records[2]
	if third.Author != "" || third.ISBN != "" {
		t.Fatalf("expected empty author and isbn, got %+v", third)
	}
	if third.Year == nil || *third.Year != 2012 {
		t.Fatalf("expected publish_date year, got %v", third.Year)
	}
}

func TestSearchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	client, err := openlibrary.New(server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Search(context.Background(), "Dune", "Herbert", 5); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}

func TestSearchMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	t.Cleanup(server.Close)

	client, err := openlibrary.New(server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Search(context.Background(), "Dune", "Herbert", 5); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	client, err := openlibrary.New("https://example.com", "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Search(context.Background(), " ", "", 5); err == nil {
		t.Fatal("expected error for empty query")
	}
}
