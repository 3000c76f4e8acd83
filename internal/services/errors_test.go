package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"shelfmark/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "metadata", "openlibrary", "search failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"metadata", "openlibrary", "search failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestKindMapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{services.Wrap(services.ErrValidation, "queue", "edit", "title must not be empty", nil), services.KindInput},
		{services.Wrap(services.ErrNotReady, "catalog", "ready", "books table missing", nil), services.KindNotReady},
		{services.Wrap(services.ErrExternalTool, "llm", "complete", "", errors.New("502")), services.KindUpstream},
		{services.Wrap(services.ErrTimeout, "llm", "complete", "", context.DeadlineExceeded), services.KindTimeout},
		{fmt.Errorf("outer: %w", services.ErrForbidden), services.KindForbidden},
		{errors.New("disk full"), services.KindInternal},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := services.Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestPublicMessageHidesUpstreamDetailUnlessDebug(t *testing.T) {
	err := services.Wrap(services.ErrExternalTool, "llm", "complete", "status 500", errors.New("secret body"))
	if msg := services.PublicMessage(err, false); strings.Contains(msg, "secret") {
		t.Fatalf("expected generic message, got %q", msg)
	}
	if msg := services.PublicMessage(err, true); !strings.Contains(msg, "secret body") {
		t.Fatalf("expected raw message in debug mode, got %q", msg)
	}

	input := services.Wrap(services.ErrValidation, "api", "ingest", "text must not be empty", nil)
	if msg := services.PublicMessage(input, false); !strings.Contains(msg, "text must not be empty") {
		t.Fatalf("expected input errors to stay descriptive, got %q", msg)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestUpstreamMarker(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"deadline", fmt.Errorf("search: %w", context.DeadlineExceeded), services.ErrTimeout},
		{"net timeout", fmt.Errorf("dial: %w", timeoutErr{}), services.ErrTimeout},
		{"plain", errors.New("502 bad gateway"), services.ErrExternalTool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.UpstreamMarker(tt.err); got != tt.want {
				t.Fatalf("UpstreamMarker() = %v, want %v", got, tt.want)
			}
		})
	}
	if services.IsTimeout(nil) {
		t.Fatal("nil must not be a timeout")
	}
}
