package daemon_test

import (
	"context"
	"net/http"
	"testing"

	"shelfmark/internal/api"
	"shelfmark/internal/daemon"
	"shelfmark/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenCatalogDB(t, cfg)
	d, err := daemon.New(cfg, db, nil, api.WithProviders())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running || !status.CatalogReady || status.Address == "" {
		t.Fatalf("unexpected status %+v", status)
	}

	resp, err := http.Get("http://" + status.Address + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenCatalogDB(t, cfg)
	first, err := daemon.New(cfg, db, nil, api.WithProviders())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	second, err := daemon.New(cfg, db, nil, api.WithProviders())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	t.Cleanup(first.Stop)

	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected the lock to block a second instance")
	}
}

func TestDaemonRequiresJWTSecret(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Server.JWTSecret = "short"
	db := testsupport.MustOpenDB(t, cfg)
	if _, err := daemon.New(cfg, db, nil); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
}
