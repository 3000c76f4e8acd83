package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"shelfmark/internal/config"
	"shelfmark/internal/database"
	"shelfmark/internal/logging"
	"shelfmark/internal/services"
	"shelfmark/internal/textutil"
)

const bookColumns = "id, title, author, normalized_title, normalized_author, title_author_hash, year, isbn, created_at"

// Store queries the catalog and link tables.
type Store struct {
	db        *database.DB
	tx        *sql.Tx
	tables    database.Tables
	minScore  float64
	likeLimit int
	logger    *slog.Logger
}

// New constructs a Store. Zero thresholds fall back to the textutil defaults.
func New(db *database.DB, matching config.Matching, logger *slog.Logger) *Store {
	minScore := matching.CatalogMinScore
	if minScore <= 0 {
		minScore = textutil.CatalogMinScore
	}
	likeLimit := matching.LikeCandidateLimit
	if likeLimit <= 0 {
		likeLimit = 20
	}
	return &Store{
		db:        db,
		tables:    db.Tables(),
		minScore:  minScore,
		likeLimit: likeLimit,
		logger:    logging.NewComponentLogger(logger, "catalog"),
	}
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

// Ready reports ErrNotReady when the catalog or link table is missing.
func (s *Store) Ready(ctx context.Context) error {
	var missing []string
	for _, table := range []string{s.tables.Books, s.tables.UserBooks} {
		ok, err := s.db.TableExists(ctx, table)
		if err != nil {
			return fmt.Errorf("check catalog table %s: %w", table, err)
		}
		if !ok {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrNotReady, "catalog", "ready",
			"missing tables "+strings.Join(missing, ", "), nil)
	}
	return nil
}

// Get loads a catalog row by id. A missing row returns (nil, nil).
func (s *Store) Get(ctx context.Context, id int64) (*Book, error) {
	row := s.q().QueryRowContext(ctx, `SELECT `+bookColumns+` FROM `+s.tables.Books+` WHERE id = ?`, id)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// FindByFingerprint loads the catalog row with the given fingerprint.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) (*Book, error) {
	row := s.q().QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM `+s.tables.Books+` WHERE title_author_hash = ? ORDER BY id LIMIT 1`,
		fingerprint,
	)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find book by fingerprint: %w", err)
	}
	return book, nil
}

// Ensure returns the catalog row matching (title, author), inserting one when
// no tier matches. Losing an insert race to a concurrent caller is not an
// error: the winner's row is returned with Created=false.
func (s *Store) Ensure(ctx context.Context, title, author string, extra Extra) (EnsureResult, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" || author == "" {
		return EnsureResult{}, services.Wrap(services.ErrValidation, "catalog", "ensure", "title and author are required", nil)
	}

	match, err := s.FindBestMatch(ctx, title, author)
	if err != nil {
		return EnsureResult{}, err
	}
	if match.Found() {
		return EnsureResult{BookID: match.Book.ID, Method: match.Method, Book: match.Book}, nil
	}

	normalizedTitle := textutil.Normalize(title)
	normalizedAuthor := textutil.Normalize(author)
	fingerprint := textutil.FingerprintNormalized(normalizedTitle, normalizedAuthor)
	var year *int
	if extra.Year != nil && *extra.Year > 0 {
		year = extra.Year
	}

	res, err := s.exec(ctx,
		`INSERT INTO `+s.tables.Books+` (title, author, normalized_title, normalized_author, title_author_hash, year, isbn, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		title, author, normalizedTitle, normalizedAuthor, fingerprint,
		database.NullableInt(year), database.NullableString(textutil.SanitizeISBN(extra.ISBN)), database.Now(),
	)
	if err != nil {
		if !database.IsUniqueViolation(err) {
			return EnsureResult{}, fmt.Errorf("insert book: %w", err)
		}
		winner, findErr := s.FindByFingerprint(ctx, fingerprint)
		if findErr != nil {
			return EnsureResult{}, findErr
		}
		if winner == nil {
			return EnsureResult{}, fmt.Errorf("insert book: conflicting row for %s disappeared: %w", fingerprint, err)
		}
		s.logger.Debug("catalog insert lost race; using existing row",
			logging.Int64(logging.FieldBookID, winner.ID),
			logging.String(logging.FieldFingerprint, fingerprint),
		)
		return EnsureResult{BookID: winner.ID, Method: MethodHash, Book: winner}, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return EnsureResult{}, fmt.Errorf("last insert id: %w", err)
	}
	book, err := s.Get(ctx, id)
	if err != nil {
		return EnsureResult{}, err
	}
	s.logger.Info("catalog book created",
		logging.Int64(logging.FieldBookID, id),
		logging.String("title", title),
		logging.String("author", author),
	)
	return EnsureResult{BookID: id, Created: true, Method: MethodNone, Book: book}, nil
}

// BackfillYear sets the year on a row that has none. It never overwrites an
// existing year and reports whether the row changed.
func (s *Store) BackfillYear(ctx context.Context, bookID int64, year *int) (bool, error) {
	if year == nil || *year <= 0 {
		return false, nil
	}
	res, err := s.exec(ctx,
		`UPDATE `+s.tables.Books+` SET year = ? WHERE id = ? AND (year IS NULL OR year = 0)`,
		*year, bookID,
	)
	if err != nil {
		return false, fmt.Errorf("backfill year: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("backfill year rows: %w", err)
	}
	return affected > 0, nil
}

// Link records that userID owns bookID. Existing links are left alone and
// reported as false.
func (s *Store) Link(ctx context.Context, userID, bookID int64) (bool, error) {
	var exists int
	err := s.q().QueryRowContext(ctx,
		`SELECT COUNT(1) FROM `+s.tables.UserBooks+` WHERE user_id = ? AND book_id = ?`,
		userID, bookID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check link: %w", err)
	}
	if exists > 0 {
		return false, nil
	}
	if _, err := s.exec(ctx,
		`INSERT INTO `+s.tables.UserBooks+` (user_id, book_id, created_at) VALUES (?, ?, ?)`,
		userID, bookID, database.Now(),
	); err != nil {
		if database.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert link: %w", err)
	}
	return true, nil
}

// FindOwned returns the user's catalog row with the given fingerprint, or nil.
func (s *Store) FindOwned(ctx context.Context, userID int64, fingerprint string) (*Book, error) {
	row := s.q().QueryRowContext(ctx,
		`SELECT `+prefixedColumns("b")+` FROM `+s.tables.Books+` b
         JOIN `+s.tables.UserBooks+` ub ON ub.book_id = b.id
         WHERE ub.user_id = ? AND b.title_author_hash = ?
         ORDER BY b.id LIMIT 1`,
		userID, fingerprint,
	)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find owned book: %w", err)
	}
	return book, nil
}

// Library lists the user's books, most recently linked first. A limit <= 0
// returns every book.
func (s *Store) Library(ctx context.Context, userID int64, limit int) ([]Book, error) {
	query := `SELECT ` + prefixedColumns("b") + ` FROM ` + s.tables.Books + ` b
         JOIN ` + s.tables.UserBooks + ` ub ON ub.book_id = b.id
         WHERE ub.user_id = ?
         ORDER BY ub.id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list library: %w", err)
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *book)
	}
	return books, rows.Err()
}

// Stats counts catalog rows and ownership links.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := s.q().QueryRowContext(ctx, `SELECT COUNT(1) FROM `+s.tables.Books).Scan(&stats.Books); err != nil {
		return Stats{}, fmt.Errorf("count books: %w", err)
	}
	if err := s.q().QueryRowContext(ctx, `SELECT COUNT(1) FROM `+s.tables.UserBooks).Scan(&stats.Links); err != nil {
		return Stats{}, fmt.Errorf("count links: %w", err)
	}
	return stats, nil
}

func prefixedColumns(alias string) string {
	cols := strings.Split(bookColumns, ", ")
	for i, col := range cols {
		cols[i] = alias + "." + col
	}
	return strings.Join(cols, ", ")
}

func scanBook(scanner interface{ Scan(dest ...any) error }) (*Book, error) {
	var (
		book             Book
		normalizedTitle  sql.NullString
		normalizedAuthor sql.NullString
		fingerprint      sql.NullString
		year             sql.NullInt64
		isbn             sql.NullString
		createdRaw       sql.NullString
	)
	if err := scanner.Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&normalizedTitle,
		&normalizedAuthor,
		&fingerprint,
		&year,
		&isbn,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	book.NormalizedTitle = normalizedTitle.String
	book.NormalizedAuthor = normalizedAuthor.String
	book.Fingerprint = fingerprint.String
	book.Year = database.IntPtr(year)
	book.ISBN = isbn.String
	if created, err := database.ParseTime(createdRaw.String); err == nil {
		book.CreatedAt = created
	}
	return &book, nil
}
