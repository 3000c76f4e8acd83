package api

import (
	"context"
	"log/slog"

	"shelfmark/internal/catalog"
	"shelfmark/internal/config"
	"shelfmark/internal/confirm"
	"shelfmark/internal/database"
	"shelfmark/internal/extraction"
	"shelfmark/internal/logging"
	"shelfmark/internal/metadata"
	"shelfmark/internal/metadata/yearcache"
	"shelfmark/internal/queue"
	"shelfmark/internal/services"
)

// Service exposes the user-facing operations over one database handle.
type Service struct {
	cfg       *config.Config
	db        *database.DB
	catalog   *catalog.Store
	queue     *queue.Store
	resolver  *metadata.Resolver
	extractor *extraction.Extractor
	committer *confirm.Committer
	logger    *slog.Logger
}

// Option customizes the outbound dependencies built by New.
type Option func(*deps)

type deps struct {
	providers      []metadata.Provider
	providersSet   bool
	model          extraction.Model
	modelSet       bool
	transcriber    extraction.Transcriber
	transcriberSet bool
}

// WithProviders replaces the configured bibliographic providers.
func WithProviders(providers ...metadata.Provider) Option {
	return func(d *deps) {
		d.providers = providers
		d.providersSet = true
	}
}

// WithModel replaces the configured extraction model.
func WithModel(model extraction.Model) Option {
	return func(d *deps) {
		d.model = model
		d.modelSet = true
	}
}

// WithTranscriber replaces the configured speech-to-text client.
func WithTranscriber(transcriber extraction.Transcriber) Option {
	return func(d *deps) {
		d.transcriber = transcriber
		d.transcriberSet = true
	}
}

// New wires the stores, resolver, extractor, and committer. Missing model
// credentials are not an error here; extraction calls fail with
// services.ErrConfiguration instead.
func New(cfg *config.Config, db *database.DB, logger *slog.Logger, opts ...Option) *Service {
	logger = logging.NewComponentLogger(logger, "api")
	var d deps
	for _, opt := range opts {
		if opt != nil {
			opt(&d)
		}
	}

	if !d.providersSet {
		d.providers = BuildProviders(cfg, logger)
	}
	if !d.modelSet {
		model, err := BuildModel(cfg)
		if err != nil {
			logger.Debug("extraction model unavailable", logging.Error(err))
		}
		d.model = model
	}
	if !d.transcriberSet {
		transcriber, err := BuildTranscriber(cfg)
		if err != nil {
			logger.Debug("transcriber unavailable", logging.Error(err))
		} else {
			d.transcriber = transcriber
		}
	}

	cache := yearcache.NewCache(cfg.Metadata.YearCachePath, cfg.YearCacheTTL(), logger)
	resolver := metadata.NewResolver(metadata.Config{
		MinScore:         cfg.Metadata.MinScore,
		LimitPerProvider: cfg.Metadata.LimitPerProvider,
		YearLimit:        cfg.Metadata.YearLimit,
	}, d.providers, cache, logger)

	catalogStore := catalog.New(db, cfg.Matching, logger)
	queueOpts := []queue.Option{queue.WithShelf(catalogStore), queue.WithMatcher(catalogStore)}
	if cfg.Metadata.EnrichOnIngest {
		queueOpts = append(queueOpts, queue.WithEnricher(NewEnricher(catalogStore, resolver, logger)))
	}
	queueStore := queue.New(db, logger, queueOpts...)

	return &Service{
		cfg:       cfg,
		db:        db,
		catalog:   catalogStore,
		queue:     queueStore,
		resolver:  resolver,
		extractor: extraction.New(cfg.Extraction, d.model, d.transcriber, logger),
		committer: confirm.New(db, catalogStore, queueStore, logger, confirm.WithDebugErrors(cfg.Debug)),
		logger:    logger,
	}
}

// Catalog exposes the catalog store for status reporting.
func (s *Service) Catalog() *catalog.Store {
	return s.catalog
}

// Queue exposes the queue store.
func (s *Service) Queue() *queue.Store {
	return s.queue
}

// Ready reports whether the catalog tables are installed.
func (s *Service) Ready(ctx context.Context) error {
	return s.catalog.Ready(ctx)
}

// Ingest queues already-extracted candidates.
func (s *Service) Ingest(ctx context.Context, userID int64, candidates []queue.Candidate, meta queue.Meta) (queue.EnqueueResult, error) {
	ctx = services.WithOperation(ctx, "ingest")
	if err := s.Ready(ctx); err != nil {
		return queue.EnqueueResult{}, err
	}
	return s.queue.Enqueue(ctx, userID, candidates, meta)
}

// IngestInput extracts candidates from raw input and queues them. Nothing is
// written when extraction fails.
func (s *Service) IngestInput(ctx context.Context, userID int64, req extraction.Request) (IngestResult, error) {
	ctx = services.WithOperation(ctx, "ingest_input")
	if userID <= 0 {
		return IngestResult{}, services.Wrap(services.ErrValidation, "api", "ingest_input", "user id is required", nil)
	}
	if err := s.Ready(ctx); err != nil {
		return IngestResult{}, err
	}
	extracted, err := s.extractor.Extract(services.WithUserID(ctx, userID), req)
	if err != nil {
		return IngestResult{}, err
	}
	res, err := s.queue.Enqueue(ctx, userID, extracted.Candidates, extracted.Meta)
	if err != nil {
		return IngestResult{}, err
	}
	return IngestResult{EnqueueResult: res, Transcript: extracted.Transcript}, nil
}

// Confirm commits the approved items.
func (s *Service) Confirm(ctx context.Context, userID int64, items []confirm.Item) (confirm.Result, error) {
	ctx = services.WithOperation(ctx, "confirm")
	if err := s.Ready(ctx); err != nil {
		return confirm.Result{}, err
	}
	return s.committer.Confirm(ctx, userID, items)
}

// ConfirmAll commits every pending row of the user.
func (s *Service) ConfirmAll(ctx context.Context, userID int64) (confirm.Result, error) {
	ctx = services.WithOperation(ctx, "confirm_all")
	if err := s.Ready(ctx); err != nil {
		return confirm.Result{}, err
	}
	return s.committer.ConfirmAll(ctx, userID)
}

// UpdatePendingField edits one field of a pending row.
func (s *Service) UpdatePendingField(ctx context.Context, userID, rowID int64, field queue.Field, value string) (queue.EditResult, error) {
	ctx = services.WithOperation(ctx, "update_pending")
	if err := s.Ready(ctx); err != nil {
		return queue.EditResult{}, err
	}
	return s.queue.UpdateField(ctx, userID, rowID, field, value)
}

// Discard marks a pending row discarded.
func (s *Service) Discard(ctx context.Context, userID, rowID int64) (*queue.PendingCandidate, error) {
	return s.queue.Discard(services.WithOperation(ctx, "discard"), userID, rowID)
}

// LookupYears resolves a publication year per item, aligned with the input.
// Pairs missing a title or author, and pairs whose lookup failed, get nil.
func (s *Service) LookupYears(ctx context.Context, items []ItemRef) []*int {
	ctx = services.WithOperation(ctx, "years")
	logger := logging.WithContext(ctx, s.logger)
	years := make([]*int, len(items))
	for i, item := range items {
		year, err := s.resolver.LookupYear(ctx, item.Title, item.Author)
		if err != nil {
			logging.WarnWithContext(logger, "year lookup failed", "year_lookup_failed",
				logging.String("title", item.Title),
				logging.String("author", item.Author),
				logging.Error(err),
				logging.String(logging.FieldImpact, "year reported as unknown"),
			)
			continue
		}
		years[i] = year
	}
	return years
}
