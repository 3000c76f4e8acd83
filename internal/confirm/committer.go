package confirm

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"shelfmark/internal/catalog"
	"shelfmark/internal/database"
	"shelfmark/internal/logging"
	"shelfmark/internal/queue"
	"shelfmark/internal/services"
	"shelfmark/internal/textutil"
)

// Item is one approved pair. Year is optional and only fills a missing year.
type Item struct {
	Title  string `json:"title" yaml:"title"`
	Author string `json:"author" yaml:"author"`
	Year   *int   `json:"year,omitempty" yaml:"year,omitempty"`
	ISBN   string `json:"isbn,omitempty" yaml:"isbn,omitempty"`
}

// ItemOutcome reports what happened to one item.
type ItemOutcome struct {
	Title       string         `json:"title"`
	Author      string         `json:"author"`
	BookID      int64          `json:"book_id,omitempty"`
	Created     bool           `json:"created"`
	Method      catalog.Method `json:"method,omitempty"`
	Linked      bool           `json:"linked"`
	YearUpdated bool           `json:"year_updated"`
	Cleared     int64          `json:"cleared"`
	Error       string         `json:"error,omitempty"`
}

// OK reports whether the item was committed.
func (o ItemOutcome) OK() bool {
	return o.Error == ""
}

// Result summarizes a batch.
type Result struct {
	Confirmed int           `json:"confirmed"`
	Errors    int           `json:"errors"`
	Details   []ItemOutcome `json:"details"`
}

// Committer applies confirmations against the catalog and the queue.
type Committer struct {
	db      *database.DB
	catalog *catalog.Store
	queue   *queue.Store
	logger  *slog.Logger
	debug   bool
}

// Option customizes a Committer.
type Option func(*Committer)

// WithDebugErrors exposes internal error text in item outcomes.
func WithDebugErrors(debug bool) Option {
	return func(c *Committer) {
		c.debug = debug
	}
}

// New constructs a Committer.
func New(db *database.DB, catalogStore *catalog.Store, queueStore *queue.Store, logger *slog.Logger, opts ...Option) *Committer {
	c := &Committer{
		db:      db,
		catalog: catalogStore,
		queue:   queueStore,
		logger:  logging.NewComponentLogger(logger, "confirm"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Confirm commits items for userID in order. The returned error is reserved
// for failures that stop the whole batch (invalid user, cancelled context).
func (c *Committer) Confirm(ctx context.Context, userID int64, items []Item) (Result, error) {
	if userID <= 0 {
		return Result{}, services.Wrap(services.ErrValidation, "confirm", "confirm", "user id is required", nil)
	}
	ctx = services.WithUserID(ctx, userID)
	result := Result{Details: make([]ItemOutcome, 0, len(items))}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		outcome := c.commit(ctx, userID, item)
		if outcome.OK() {
			result.Confirmed++
		} else {
			result.Errors++
		}
		result.Details = append(result.Details, outcome)
	}
	logging.WithContext(ctx, c.logger).Info("confirmation batch committed",
		logging.Int("confirmed", result.Confirmed),
		logging.Int("errors", result.Errors),
	)
	return result, nil
}

// ConfirmAll commits the user's oldest pending rows with their current values.
func (c *Committer) ConfirmAll(ctx context.Context, userID int64) (Result, error) {
	if userID <= 0 {
		return Result{}, services.Wrap(services.ErrValidation, "confirm", "confirm_all", "user id is required", nil)
	}
	rows, err := c.queue.ListForConfirmAll(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, Item{Title: row.Title, Author: row.Author, Year: row.Year, ISBN: row.ExternalISBN})
	}
	return c.Confirm(ctx, userID, items)
}

func (c *Committer) commit(ctx context.Context, userID int64, item Item) ItemOutcome {
	outcome := ItemOutcome{
		Title:  strings.TrimSpace(item.Title),
		Author: strings.TrimSpace(item.Author),
	}
	if outcome.Title == "" || outcome.Author == "" {
		outcome.Error = "title and author are required"
		c.logRejected(ctx, outcome, "validate")
		return outcome
	}

	ensured, err := c.catalog.Ensure(ctx, outcome.Title, outcome.Author, catalog.Extra{Year: item.Year, ISBN: item.ISBN})
	if err != nil {
		return c.fail(ctx, outcome, "ensure", err)
	}
	outcome.BookID = ensured.BookID
	outcome.Created = ensured.Created
	outcome.Method = ensured.Method

	fingerprints := []string{textutil.Fingerprint(outcome.Title, outcome.Author)}
	if ensured.Book != nil {
		fingerprints = append(fingerprints, ensured.Book.Fingerprint)
	}

	err = c.db.InTx(ctx, func(tx *sql.Tx) error {
		cat := c.catalog.WithTx(tx)
		if !ensured.Created {
			updated, err := cat.BackfillYear(ctx, ensured.BookID, item.Year)
			if err != nil {
				return err
			}
			outcome.YearUpdated = updated
		}
		linked, err := cat.Link(ctx, userID, ensured.BookID)
		if err != nil {
			return err
		}
		outcome.Linked = linked
		cleared, err := c.queue.WithTx(tx).DeletePendingByFingerprint(ctx, userID, fingerprints...)
		if err != nil {
			return err
		}
		outcome.Cleared = cleared
		return nil
	})
	if err != nil {
		outcome.Linked, outcome.YearUpdated, outcome.Cleared = false, false, 0
		return c.fail(ctx, outcome, "commit", err)
	}

	attrs := append(logging.MatchAttrs(string(outcome.Method), outcome.BookID, 0), logging.Int64("cleared", outcome.Cleared))
	logging.WithContext(ctx, c.logger).Debug("book confirmed", logging.Args(attrs...)...)
	return outcome
}

func (c *Committer) fail(ctx context.Context, outcome ItemOutcome, stage string, err error) ItemOutcome {
	outcome.Error = services.PublicMessage(err, c.debug)
	if errors.Is(err, services.ErrValidation) {
		c.logRejected(ctx, outcome, stage)
		return outcome
	}
	logging.WarnWithContext(logging.WithContext(ctx, c.logger), "confirmation failed", "confirm_item_failed",
		logging.String("stage", stage),
		logging.String("title", outcome.Title),
		logging.String("author", outcome.Author),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check database connectivity and catalog schema"),
		logging.String(logging.FieldImpact, "item left pending"),
	)
	return outcome
}

// logRejected records an item the caller must correct. These are input
// problems, so they stay at info.
func (c *Committer) logRejected(ctx context.Context, outcome ItemOutcome, stage string) {
	logging.WithContext(ctx, c.logger).Info("confirmation rejected",
		logging.String(logging.FieldEventType, "confirm_item_rejected"),
		logging.String("stage", stage),
		logging.String("title", outcome.Title),
		logging.String("author", outcome.Author),
		logging.String("reason", outcome.Error),
	)
}
