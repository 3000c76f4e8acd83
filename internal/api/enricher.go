package api

import (
	"context"
	"log/slog"

	"shelfmark/internal/catalog"
	"shelfmark/internal/logging"
	"shelfmark/internal/metadata"
	"shelfmark/internal/queue"
)

// CatalogMatcher finds the canonical row for a pair.
type CatalogMatcher interface {
	FindBestMatch(ctx context.Context, title, author string) (catalog.Match, error)
}

// Enricher annotates candidates before they are queued: a catalog match
// first, then the external providers. Failures are logged and leave the
// candidate as it was.
type Enricher struct {
	catalog  CatalogMatcher
	resolver *metadata.Resolver
	logger   *slog.Logger
}

// NewEnricher builds an Enricher. Either source may be nil.
func NewEnricher(matcher CatalogMatcher, resolver *metadata.Resolver, logger *slog.Logger) *Enricher {
	return &Enricher{catalog: matcher, resolver: resolver, logger: logging.NewComponentLogger(logger, "enricher")}
}

// Enrich implements queue.Enricher.
func (e *Enricher) Enrich(ctx context.Context, candidate queue.Candidate) queue.Candidate {
	logger := logging.WithContext(ctx, e.logger)
	if e.catalog != nil {
		match, err := e.catalog.FindBestMatch(ctx, candidate.Title, candidate.Author)
		if err != nil {
			logging.WarnWithContext(logger, "catalog match failed", "enrich_catalog_failed",
				logging.String("title", candidate.Title),
				logging.Error(err),
				logging.String(logging.FieldImpact, "candidate queued without catalog match"),
			)
		} else if match.Found() {
			bookID := match.Book.ID
			candidate.MatchedBookID = &bookID
			candidate.MatchMethod = string(match.Method)
			if candidate.Year == nil {
				candidate.Year = match.Book.Year
			}
			if candidate.ISBN == "" {
				candidate.ISBN = match.Book.ISBN
			}
			return candidate
		}
	}
	if e.resolver == nil {
		return candidate
	}

	best, err := e.resolver.SearchBestMatch(ctx, candidate.Title, candidate.Author, 0)
	if err != nil {
		logging.WarnWithContext(logger, "external lookup failed", "enrich_external_failed",
			logging.String("title", candidate.Title),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check provider connectivity"),
			logging.String(logging.FieldImpact, "candidate queued without external metadata"),
		)
		return candidate
	}
	if best == nil {
		return candidate
	}
	if candidate.Year == nil {
		candidate.Year = best.Year
	}
	if candidate.ISBN == "" {
		candidate.ISBN = best.ISBN
	}
	score := best.Score
	candidate.Source = best.Source
	candidate.Score = &score
	return candidate
}
