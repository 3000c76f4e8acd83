package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"shelfmark/internal/catalog"
	"shelfmark/internal/database"
	"shelfmark/internal/logging"
	"shelfmark/internal/services"
)

const (
	// ConfirmAllLimit bounds how many pending rows a confirm-all pass loads.
	ConfirmAllLimit = 500
	// DefaultListLimit bounds ListPending when the caller passes no limit.
	DefaultListLimit = 200
)

const itemColumns = "id, user_id, input_type, source_note, title, author, normalized_title, normalized_author, title_author_hash, year, external_isbn, external_source, external_score, match_method, matched_book_id, status, raw_response, created_at, updated_at"

// Shelf answers whether a user already owns a fingerprint.
type Shelf interface {
	FindOwned(ctx context.Context, userID int64, fingerprint string) (*catalog.Book, error)
}

// Matcher re-runs catalog matching after a title or author edit.
type Matcher interface {
	FindBestMatch(ctx context.Context, title, author string) (catalog.Match, error)
}

// Enricher annotates a candidate right before it is inserted. It runs with no
// transaction open and must not fail the enqueue; problems are its own to log.
type Enricher interface {
	Enrich(ctx context.Context, candidate Candidate) Candidate
}

// Option customizes a Store.
type Option func(*Store)

// WithShelf enables the ownership short-circuit in Enqueue.
func WithShelf(shelf Shelf) Option {
	return func(s *Store) { s.shelf = shelf }
}

// WithMatcher enables catalog re-matching on title/author edits.
func WithMatcher(matcher Matcher) Option {
	return func(s *Store) { s.matcher = matcher }
}

// WithEnricher enables ingest-time enrichment.
func WithEnricher(enricher Enricher) Option {
	return func(s *Store) { s.enricher = enricher }
}

// Store manages the confirmation queue table.
type Store struct {
	db       *database.DB
	tx       *sql.Tx
	table    string
	shelf    Shelf
	matcher  Matcher
	enricher Enricher
	logger   *slog.Logger
}

// New constructs a queue Store over an open database.
func New(db *database.DB, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		db:     db,
		table:  db.Tables().Pending,
		logger: logging.NewComponentLogger(logger, "queue"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// WithTx returns a copy of the store whose statements run inside tx.
func (s *Store) WithTx(tx *sql.Tx) *Store {
	clone := *s
	clone.tx = tx
	return &clone
}

func (s *Store) q() database.Querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db.Conn()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.tx != nil {
		return s.tx.ExecContext(ctx, query, args...)
	}
	return s.db.Exec(ctx, query, args...)
}

// Get fetches a queue row by identifier. A missing row returns (nil, nil).
func (s *Store) Get(ctx context.Context, id int64) (*PendingCandidate, error) {
	return getItem(ctx, s.q(), s.table, id)
}

func getItem(ctx context.Context, q database.Querier, table string, id int64) (*PendingCandidate, error) {
	row := q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM `+table+` WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending row: %w", err)
	}
	return item, nil
}

// loadOwnedPending loads a row and checks it belongs to userID and is still pending.
func loadOwnedPending(ctx context.Context, q database.Querier, table string, userID, rowID int64, operation string) (*PendingCandidate, error) {
	item, err := getItem(ctx, q, table, rowID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, services.Wrap(services.ErrNotFound, "queue", operation, fmt.Sprintf("pending row %d not found", rowID), nil)
	}
	if item.UserID != userID {
		return nil, services.Wrap(services.ErrForbidden, "queue", operation, fmt.Sprintf("pending row %d belongs to another user", rowID), nil)
	}
	if item.Status != StatusPending {
		return nil, services.Wrap(services.ErrConflict, "queue", operation, fmt.Sprintf("row %d is %s, not pending", rowID, item.Status), nil)
	}
	return item, nil
}

// FindPending returns the user's pending row with the given fingerprint, or nil.
func (s *Store) FindPending(ctx context.Context, userID int64, fingerprint string) (*PendingCandidate, error) {
	row := s.q().QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM `+s.table+`
         WHERE user_id = ? AND status = ? AND title_author_hash = ?
         ORDER BY id LIMIT 1`,
		userID, StatusPending, fingerprint,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find pending row: %w", err)
	}
	return item, nil
}

// ListPending returns the user's pending rows, newest first.
func (s *Store) ListPending(ctx context.Context, userID int64, limit int) ([]*PendingCandidate, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return s.list(ctx,
		`SELECT `+itemColumns+` FROM `+s.table+` WHERE user_id = ? AND status = ? ORDER BY id DESC LIMIT ?`,
		userID, StatusPending, limit,
	)
}

// ListForConfirmAll returns the user's oldest pending rows in insertion order,
// bounded by ConfirmAllLimit.
func (s *Store) ListForConfirmAll(ctx context.Context, userID int64) ([]*PendingCandidate, error) {
	return s.list(ctx,
		`SELECT `+itemColumns+` FROM `+s.table+` WHERE user_id = ? AND status = ? ORDER BY id ASC LIMIT ?`,
		userID, StatusPending, ConfirmAllLimit,
	)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*PendingCandidate, error) {
	rows, err := s.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending rows: %w", err)
	}
	defer rows.Close()

	var items []*PendingCandidate
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DeletePendingByFingerprint removes every pending row of userID carrying one
// of the given fingerprints and returns how many rows went away.
func (s *Store) DeletePendingByFingerprint(ctx context.Context, userID int64, fingerprints ...string) (int64, error) {
	unique := make([]any, 0, len(fingerprints))
	seen := make(map[string]struct{}, len(fingerprints))
	for _, fp := range fingerprints {
		fp = strings.TrimSpace(fp)
		if fp == "" {
			continue
		}
		if _, ok := seen[fp]; ok {
			continue
		}
		seen[fp] = struct{}{}
		unique = append(unique, fp)
	}
	if len(unique) == 0 {
		return 0, nil
	}
	args := append([]any{userID, StatusPending}, unique...)
	res, err := s.exec(ctx,
		`DELETE FROM `+s.table+` WHERE user_id = ? AND status = ? AND title_author_hash IN (`+makePlaceholders(len(unique))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("delete pending rows: %w", err)
	}
	return res.RowsAffected()
}

// Discard marks a pending row discarded. An older discarded row with the same
// fingerprint is removed first so the unique key keeps holding.
func (s *Store) Discard(ctx context.Context, userID, rowID int64) (*PendingCandidate, error) {
	var discarded *PendingCandidate
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		item, err := loadOwnedPending(ctx, tx, s.table, userID, rowID, "discard")
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+s.table+` WHERE user_id = ? AND status = ? AND title_author_hash = ?`,
			userID, StatusDiscarded, item.Fingerprint,
		); err != nil {
			return fmt.Errorf("remove previous discard: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE `+s.table+` SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			StatusDiscarded, database.Now(), rowID, StatusPending,
		); err != nil {
			return fmt.Errorf("discard row: %w", err)
		}
		discarded, err = getItem(ctx, tx, s.table, rowID)
		return err
	})
	if err != nil {
		return nil, err
	}
	logging.WithContext(services.WithRowID(services.WithUserID(ctx, userID), rowID), s.logger).
		Info("pending row discarded", logging.String("title", discarded.Title))
	return discarded, nil
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*PendingCandidate, error) {
	var (
		item           PendingCandidate
		inputType      sql.NullString
		sourceNote     sql.NullString
		year           sql.NullInt64
		externalISBN   sql.NullString
		externalSource sql.NullString
		externalScore  sql.NullFloat64
		matchMethod    sql.NullString
		matchedBookID  sql.NullInt64
		statusStr      string
		rawResponse    sql.NullString
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)
	if err := scanner.Scan(
		&item.ID,
		&item.UserID,
		&inputType,
		&sourceNote,
		&item.Title,
		&item.Author,
		&item.NormalizedTitle,
		&item.NormalizedAuthor,
		&item.Fingerprint,
		&year,
		&externalISBN,
		&externalSource,
		&externalScore,
		&matchMethod,
		&matchedBookID,
		&statusStr,
		&rawResponse,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	item.InputType = InputType(inputType.String)
	item.SourceNote = sourceNote.String
	item.Year = database.IntPtr(year)
	item.ExternalISBN = externalISBN.String
	item.ExternalSource = externalSource.String
	item.ExternalScore = database.FloatPtr(externalScore)
	item.MatchMethod = matchMethod.String
	item.MatchedBookID = database.Int64Ptr(matchedBookID)
	item.Status = Status(statusStr)
	item.RawResponse = rawResponse.String
	if created, err := database.ParseTime(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := database.ParseTime(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return &item, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
