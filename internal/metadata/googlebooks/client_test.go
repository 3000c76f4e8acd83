package googlebooks_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"shelfmark/internal/metadata/googlebooks"
)

func TestQuery(t *testing.T) {
	tests := []struct {
		title, author, want string
	}{
		{"Dune", "Frank Herbert", "intitle:Dune inauthor:Frank Herbert"},
		{"Dune", "", "intitle:Dune"},
		{" ", "Herbert", "inauthor:Herbert"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := googlebooks.Query(tt.title, tt.author); got != tt.want {
			t.Errorf("Query(%q, %q) = %q, want %q", tt.title, tt.author, got, tt.want)
		}
	}
}

func TestSearchMapsVolumes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/volumes" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "intitle:Dune inauthor:Herbert" {
			t.Errorf("unexpected q %q", q.Get("q"))
		}
		if q.Get("maxResults") != "40" {
			t.Errorf("expected capped maxResults, got %q", q.Get("maxResults"))
		}
		if q.Get("key") != "secret" {
			t.Errorf("expected api key, got %q", q.Get("key"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"totalItems":3,"items":[
			{"id":"a","volumeInfo":{"title":"Dune","authors":["Frank Herbert","Brian Herbert"],"publishedDate":"1965-08-01",
				"industryIdentifiers":[{"type":"ISBN_10","identifier":"0441013597"},{"type":"ISBN_13","identifier":"9780441013593"}]}},
			{"id":"b","volumeInfo":{"authors":["Anonymous"]}},
			{"id":"c","volumeInfo":{"title":"Dune Messiah","industryIdentifiers":[{"type":"OTHER","identifier":"UOM:39015"}]}}
		]}`))
	}))
	t.Cleanup(server.Close)

	client, err := googlebooks.New(server.URL, "shelfmark-test", googlebooks.WithAPIKey("secret"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	records, err := client.Search(context.Background(), "Dune", "Herbert", 100)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected untitled volume to be dropped, got %d", len(records))
	}
	first := records[0]
	if first.Author != "Frank Herbert" || first.ISBN != "9780441013593" {
		t.Fatalf("unexpected first record %+v", first)
	}
	if first.Year == nil || *first.Year != 1965 {
		t.Fatalf("expected year from publishedDate, got %v", first.Year)
	}
	second := records[1]
	if second.Author != "" || second.ISBN != "UOM:39015" || second.Year != nil {
		t.Fatalf("unexpected second record %+v", second)
	}
}

func TestSearchOmitsKeyWhenUnset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.URL.Query()["key"]; ok {
			t.Errorf("did not expect key parameter: %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"totalItems":0}`))
	}))
	t.Cleanup(server.Close)

	client, err := googlebooks.New(server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	records, err := client.Search(context.Background(), "Dune", "", 5)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}

func TestSearchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	client, err := googlebooks.New(server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Search(context.Background(), "Dune", "Herbert", 5); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}
