package testsupport

import (
	"path/filepath"
	"testing"

	"shelfmark/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose database, cache, logs, and lock file live
// in a per-test temp directory. No network endpoint is reachable by default.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Database.Driver = config.DriverSQLite
	cfgVal.Database.Path = filepath.Join(base, "data", "shelfmark.db")
	cfgVal.Metadata.YearCachePath = filepath.Join(base, "cache", "year_cache.json")
	cfgVal.Metadata.OpenLibraryBaseURL = "http://127.0.0.1:0"
	cfgVal.Metadata.GoogleBooksBaseURL = "http://127.0.0.1:0"
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.Server.LockPath = filepath.Join(base, "shelfmark.lock")
	cfgVal.Server.JWTSecret = "test-secret-0123456789abcdef"
	cfgVal.LLM.APIKey = "test-key"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTablePrefix sets the catalog/queue table prefix.
func WithTablePrefix(prefix string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Database.TablePrefix = prefix
	}
}

// WithMetadataServer points both bibliographic providers at baseURL, usually an
// httptest server that routes /search.json and /volumes.
func WithMetadataServer(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metadata.OpenLibraryBaseURL = baseURL
		b.cfg.Metadata.GoogleBooksBaseURL = baseURL
	}
}

// WithProviders restricts the enabled bibliographic providers.
func WithProviders(providers ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metadata.Providers = providers
	}
}

// WithEnrichment toggles ingest-time enrichment.
func WithEnrichment(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metadata.EnrichOnIngest = enabled
	}
}

// WithLLMEndpoint points chat completions and transcription at an httptest server.
func WithLLMEndpoint(chatURL, transcriptionURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = chatURL
		b.cfg.Transcription.BaseURL = transcriptionURL
	}
}
