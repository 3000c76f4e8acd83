package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"shelfmark/internal/catalog"
	"shelfmark/internal/config"
	"shelfmark/internal/database"
	"shelfmark/internal/metadata"
	"shelfmark/internal/services"
	"shelfmark/internal/services/llm"
)

// CheckLLM verifies that the chat completion API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg config.LLM) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeUpstreamError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckProvider runs a one-result search against a bibliographic provider.
// An empty answer still passes; only transport and HTTP failures fail.
func CheckProvider(ctx context.Context, provider metadata.Provider) Result {
	name := "Provider " + provider.Name()

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	records, err := provider.Search(checkCtx, "Dune", "Frank Herbert", 1)
	if err != nil {
		return Result{Name: name, Detail: summarizeUpstreamError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (%d result(s))", len(records))}
}

// CheckCatalog verifies that the catalog and library tables exist.
func CheckCatalog(ctx context.Context, db *database.DB, matching config.Matching) Result {
	const name = "Catalog tables"

	store := catalog.New(db, matching, nil)
	if err := store.Ready(ctx); err != nil {
		return Result{Name: name, Detail: services.PublicMessage(err, true)}
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("count rows: %v", err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d books, %d library entries", stats.Books, stats.Links)}
}

// CheckServerSecret verifies that the API can sign bearer tokens.
func CheckServerSecret(cfg *config.Config) Result {
	const name = "API token secret"
	if err := cfg.ValidateServer(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// CheckExtractionCredentials verifies the selected model provider has a key.
func CheckExtractionCredentials(cfg *config.Config) Result {
	name := "Extraction credentials (" + cfg.Extraction.Provider + ")"
	if err := cfg.ValidateExtractionCredentials(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeUpstreamError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (upstream unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (upstream unreachable)"
	}
	return err.Error()
}
