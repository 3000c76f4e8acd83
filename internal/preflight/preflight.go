package preflight

import (
	"context"
	"path/filepath"

	"shelfmark/internal/config"
	"shelfmark/internal/database"
	"shelfmark/internal/metadata"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Options supplies the handles the checks inspect. DB may be nil when the
// database could not be opened, in which case the catalog check is skipped.
type Options struct {
	DB        *database.DB
	Providers []metadata.Provider
	Online    bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Log directory", cfg.Logging.Dir))
	if cfg.Database.Driver == config.DriverSQLite {
		results = append(results, CheckDirectoryAccess("Database directory", filepath.Dir(cfg.Database.Path)))
	}
	if cfg.Metadata.YearCachePath != "" {
		results = append(results, CheckDirectoryAccess("Year cache directory", filepath.Dir(cfg.Metadata.YearCachePath)))
	}

	if opts.DB != nil {
		results = append(results, CheckCatalog(ctx, opts.DB, cfg.Matching))
	}

	results = append(results, CheckServerSecret(cfg))
	results = append(results, CheckExtractionCredentials(cfg))

	if !opts.Online {
		return results
	}

	if cfg.Extraction.Provider != config.ExtractionGemini {
		results = append(results, CheckLLM(ctx, "Extraction API", cfg.LLM))
	}
	for _, provider := range opts.Providers {
		results = append(results, CheckProvider(ctx, provider))
	}
	return results
}
