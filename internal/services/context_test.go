package services_test

import (
	"context"
	"testing"

	"shelfmark/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithUserID(ctx, 7)
	ctx = services.WithRowID(ctx, 42)
	ctx = services.WithOperation(ctx, "confirm")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.UserIDFromContext(ctx); !ok || id != 7 {
		t.Fatalf("unexpected user id: %v %v", id, ok)
	}
	if id, ok := services.RowIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected row id: %v %v", id, ok)
	}
	if op, ok := services.OperationFromContext(ctx); !ok || op != "confirm" {
		t.Fatalf("unexpected operation: %v %v", op, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestEnsureRequestID(t *testing.T) {
	ctx, rid := services.EnsureRequestID(context.Background())
	if rid == "" {
		t.Fatal("expected generated request id")
	}
	again, same := services.EnsureRequestID(ctx)
	if same != rid || again != ctx {
		t.Fatalf("expected existing id to be kept, got %q", same)
	}
}

func TestOperationBlankPreservesContext(t *testing.T) {
	ctx := services.WithOperation(context.Background(), "")
	if _, ok := services.OperationFromContext(ctx); ok {
		t.Fatal("expected no operation value")
	}
}
