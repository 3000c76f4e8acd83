package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"shelfmark/internal/logging"
	"shelfmark/internal/metadata/yearcache"
	"shelfmark/internal/services"
	"shelfmark/internal/textutil"
)

const (
	defaultLimitPerProvider = 5
	defaultYearLimit        = 3
)

// YearCache stores resolved years keyed by simplified title and author.
type YearCache interface {
	Lookup(title, author string) (yearcache.Entry, bool)
	Store(entry yearcache.Entry) error
}

// Resolver selects the best external match across providers.
type Resolver struct {
	cfg       Config
	providers []Provider
	cache     YearCache
	logger    *slog.Logger
}

// NewResolver builds a Resolver. cache may be nil to disable year caching.
func NewResolver(cfg Config, providers []Provider, cache YearCache, logger *slog.Logger) *Resolver {
	if cfg.MinScore <= 0 {
		cfg.MinScore = textutil.ExternalMinScore
	}
	if cfg.LimitPerProvider <= 0 {
		cfg.LimitPerProvider = defaultLimitPerProvider
	}
	if cfg.YearLimit <= 0 {
		cfg.YearLimit = defaultYearLimit
	}
	return &Resolver{
		cfg:       cfg,
		providers: providers,
		cache:     cache,
		logger:    logging.NewComponentLogger(logger, "metadata"),
	}
}

// MinScore reports the acceptance floor in use.
func (r *Resolver) MinScore() float64 {
	return r.cfg.MinScore
}

// SearchBestMatch queries every provider with the raw title and author and
// returns the best re-scored candidate, or nil when nothing reaches MinScore.
// A failing provider is logged and skipped; an error is returned only when
// every provider failed. A limit <= 0 uses the configured per-provider limit.
func (r *Resolver) SearchBestMatch(ctx context.Context, title, author string, limit int) (*Candidate, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" && author == "" {
		return nil, nil
	}
	if len(r.providers) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = r.cfg.LimitPerProvider
	}
	normalizedTitle := textutil.Normalize(title)
	normalizedAuthor := textutil.Normalize(author)

	type providerResult struct {
		records []Record
		err     error
	}
	results := make([]providerResult, len(r.providers))
	var wg sync.WaitGroup
	for i, provider := range r.providers {
		wg.Add(1)
		go func(i int, provider Provider) {
			defer wg.Done()
			records, err := provider.Search(ctx, title, author, limit)
			results[i] = providerResult{records: records, err: err}
		}(i, provider)
	}
	wg.Wait()

	var (
		candidates []Candidate
		failures   []error
	)
	for i, res := range results {
		name := r.providers[i].Name()
		if res.err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", name, res.err))
			logging.WarnWithContext(logging.WithContext(ctx, r.logger), "metadata provider failed", "metadata_provider_failed",
				logging.String(logging.FieldProvider, name),
				logging.Error(res.err),
				logging.String(logging.FieldErrorHint, "check network access and provider status"),
				logging.String(logging.FieldImpact, "results from this provider are skipped"),
			)
			continue
		}
		for _, record := range res.records {
			if strings.TrimSpace(record.Title) == "" {
				continue
			}
			candidates = append(candidates, Candidate{
				Title:  record.Title,
				Author: record.Author,
				ISBN:   record.ISBN,
				Source: name,
				Year:   record.Year,
				Score: textutil.Score(textutil.Normalize(record.Title), textutil.Normalize(record.Author),
					normalizedTitle, normalizedAuthor),
			})
		}
	}
	if len(failures) == len(r.providers) {
		joined := errors.Join(failures...)
		return nil, services.Wrap(services.UpstreamMarker(joined), "metadata", "search", "all providers failed", joined)
	}

	best := selectBest(dedupe(candidates), normalizedTitle, normalizedAuthor)
	if best == nil || best.Score < r.cfg.MinScore {
		r.logger.Debug("no external match above floor",
			logging.String("title", title),
			logging.String("author", author),
			logging.Int("candidates", len(candidates)),
		)
		return nil, nil
	}
	return best, nil
}

// dedupe keeps the highest-scoring candidate per normalized title|author,
// preserving first-seen order.
func dedupe(candidates []Candidate) []Candidate {
	index := make(map[string]int, len(candidates))
	out := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		key := textutil.Normalize(candidate.Title) + "|" + textutil.Normalize(candidate.Author)
		if pos, ok := index[key]; ok {
			if candidate.Score > out[pos].Score {
				out[pos] = candidate
			}
			continue
		}
		index[key] = len(out)
		out = append(out, candidate)
	}
	return out
}

// selectBest re-scores every candidate against the query and returns the first
// one with the strictly highest score.
func selectBest(candidates []Candidate, normalizedTitle, normalizedAuthor string) *Candidate {
	var best *Candidate
	bestScore := -1.0
	for i := range candidates {
		candidate := &candidates[i]
		candidate.Score = textutil.Score(textutil.Normalize(candidate.Title), textutil.Normalize(candidate.Author),
			normalizedTitle, normalizedAuthor)
		if candidate.Score > bestScore {
			bestScore = candidate.Score
			best = candidate
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// LookupYear resolves a publication year for (title, author). The subtitle is
// dropped before searching, and outcomes (including "no year") are cached.
// Empty input yields nil without contacting any provider.
func (r *Resolver) LookupYear(ctx context.Context, title, author string) (*int, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" || author == "" {
		return nil, nil
	}
	simplified := textutil.SimplifyTitle(title)

	if r.cache != nil {
		if entry, ok := r.cache.Lookup(simplified, author); ok {
			return entry.Year, nil
		}
	}

	best, err := r.SearchBestMatch(ctx, simplified, author, r.cfg.YearLimit)
	if err != nil {
		return nil, err
	}
	var year *int
	if best != nil && best.Year != nil && *best.Year > 0 {
		y := *best.Year
		year = &y
	}

	if r.cache != nil {
		if err := r.cache.Store(yearcache.Entry{Title: simplified, Author: author, Year: year}); err != nil {
			logging.WarnWithContext(r.logger, "year cache write failed", "year_cache_store_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "the next lookup for this title will query providers again"),
			)
		}
	}
	return year, nil
}
