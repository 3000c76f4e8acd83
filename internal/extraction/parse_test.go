package extraction_test

import (
	"errors"
	"testing"

	"shelfmark/internal/extraction"
)

func TestParseBooks(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{"object", `{"books":[{"title":"Dune","author":"Frank Herbert"}]}`, []string{"Dune|Frank Herbert"}, false},
		{"bare array", `[{"title":"Emma","author":"Jane Austen"},{"title":"1984","author":"George Orwell"}]`, []string{"Emma|Jane Austen", "1984|George Orwell"}, false},
		{"empty list", `{"books":[]}`, nil, false},
		{"empty array", `[]`, nil, false},
		{"numeric title", `{"books":[{"title":1984,"author":"George Orwell"}]}`, []string{"1984|George Orwell"}, false},
		{"missing author", `{"books":[{"title":"Dune"}]}`, []string{"Dune|"}, false},
		{"fenced", "```json\n[{\"title\":\"Dune\",\"author\":\"Frank Herbert\"}]\n```", []string{"Dune|Frank Herbert"}, false},
		{"no books key", `{"result":"ok"}`, nil, true},
		{"scalar", `"Dune"`, nil, true},
		{"prose", `no idea`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extraction.ParseBooks(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBooks returned error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d candidates, got %+v", len(tt.want), got)
			}
			for i, want := range tt.want {
				if pair := got[i].Title + "|" + got[i].Author; pair != want {
					t.Fatalf("candidate %d = %q, want %q", i, pair, want)
				}
			}
		})
	}
}

func TestParseBooksShapeError(t *testing.T) {
	if _, err := extraction.ParseBooks(`{"items":[]}`); !errors.Is(err, extraction.ErrUnexpectedShape) {
		t.Fatalf("expected ErrUnexpectedShape, got %v", err)
	}
}

func TestParseDataURL(t *testing.T) {
	img, err := extraction.ParseDataURL("data:image/PNG;base64,aGVsbG8=")
	if err != nil {
		t.Fatalf("ParseDataURL returned error: %v", err)
	}
	if img.MIMEType != "image/png" || string(img.Data) != "hello" {
		t.Fatalf("unexpected image %+v", img)
	}
	if got := img.DataURL(); got != "data:image/png;base64,aGVsbG8=" {
		t.Fatalf("unexpected round trip %q", got)
	}

	remote, err := extraction.ParseDataURL("https://example.com/shelf.jpg")
	if err != nil || remote.URL != "https://example.com/shelf.jpg" || remote.DataURL() != remote.URL {
		t.Fatalf("expected URL passthrough, got %+v, %v", remote, err)
	}

	for _, bad := range []string{"", "ftp://x", "data:image/png,raw", "data:image/png;base64", "data:image/png;base64,!!!"} {
		if _, err := extraction.ParseDataURL(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	if got := extraction.BuildPrompt("Extract books.", "I read Dune"); got != "Extract books.\n\nText:\n\"I read Dune\"" {
		t.Fatalf("unexpected prompt %q", got)
	}
}
