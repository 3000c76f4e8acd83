package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"shelfmark/internal/catalog"
	"shelfmark/internal/database"
	"shelfmark/internal/logging"
	"shelfmark/internal/services"
	"shelfmark/internal/textutil"
)

// UpdateField applies an inline edit to a pending row owned by userID.
//
// Year values keep their digits only (<= 0 clears the year); ISBN values keep
// digits, X, and hyphens. Title and author edits re-derive the normalized
// columns and fingerprint and re-run the catalog matcher. They also replace the
// year and external metadata with what the enricher reports for the new pair,
// or clear them when no enricher is configured. When the new
// fingerprint collides with another pending row of the same user, the lower id
// survives: the higher row is deleted first and the edited title and author
// are written into the survivor.
func (s *Store) UpdateField(ctx context.Context, userID, rowID int64, field Field, value string) (EditResult, error) {
	parsed, ok := ParseField(string(field))
	if !ok {
		return EditResult{}, services.Wrap(services.ErrValidation, "queue", "update_field", fmt.Sprintf("field %q is not editable", field), nil)
	}
	field = parsed
	ctx = services.WithRowID(services.WithUserID(ctx, userID), rowID)
	logger := logging.WithContext(ctx, s.logger)

	current, err := loadOwnedPending(ctx, s.q(), s.table, userID, rowID, "update_field")
	if err != nil {
		return EditResult{}, err
	}

	switch field {
	case FieldYear:
		year := textutil.ParseYear(value)
		if err := s.updateColumn(ctx, rowID, "year", database.NullableInt(year)); err != nil {
			return EditResult{}, err
		}
		row, err := s.Get(ctx, rowID)
		return EditResult{Row: row}, err
	case FieldISBN:
		isbn := textutil.SanitizeISBN(value)
		if err := s.updateColumn(ctx, rowID, "external_isbn", database.NullableString(isbn)); err != nil {
			return EditResult{}, err
		}
		row, err := s.Get(ctx, rowID)
		return EditResult{Row: row}, err
	}

	value = strings.TrimSpace(value)
	title, author := current.Title, current.Author
	if field == FieldTitle {
		title = value
	} else {
		author = value
	}
	normalizedTitle := textutil.Normalize(title)
	normalizedAuthor := textutil.Normalize(author)
	if normalizedTitle == "" || normalizedAuthor == "" {
		return EditResult{}, services.Wrap(services.ErrValidation, "queue", "update_field", string(field)+" cannot be empty", nil)
	}
	fingerprint := textutil.FingerprintNormalized(normalizedTitle, normalizedAuthor)

	match := catalog.Match{Method: catalog.MethodNone}
	if s.matcher != nil {
		if match, err = s.matcher.FindBestMatch(ctx, title, author); err != nil {
			return EditResult{}, fmt.Errorf("rematch edited row: %w", err)
		}
	}
	var matchedBookID *int64
	if match.Found() {
		matchedBookID = &match.Book.ID
	}
	external := Candidate{Title: title, Author: author}
	if s.enricher != nil {
		external = s.enricher.Enrich(ctx, external)
	}

	var result EditResult
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := loadOwnedPending(ctx, tx, s.table, userID, rowID, "update_field"); err != nil {
			return err
		}

		keepID := rowID
		var duplicateID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM `+s.table+` WHERE user_id = ? AND status = ? AND title_author_hash = ? AND id <> ? ORDER BY id LIMIT 1`,
			userID, StatusPending, fingerprint, rowID,
		).Scan(&duplicateID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("find colliding row: %w", err)
		default:
			dropID := max(rowID, duplicateID)
			keepID = min(rowID, duplicateID)
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+s.table+` WHERE id = ?`, dropID); err != nil {
				return fmt.Errorf("delete merged row: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE `+s.table+`
             SET title = ?, author = ?, normalized_title = ?, normalized_author = ?, title_author_hash = ?,
                 year = ?, external_isbn = ?, external_source = ?, external_score = ?,
                 match_method = ?, matched_book_id = ?, updated_at = ?
             WHERE id = ?`,
			title, author, normalizedTitle, normalizedAuthor, fingerprint,
			database.NullableInt(positiveYear(external.Year)),
			database.NullableString(textutil.SanitizeISBN(external.ISBN)),
			database.NullableString(external.Source),
			database.NullableFloat(external.Score),
			string(match.Method), database.NullableInt64(matchedBookID), database.Now(),
			keepID,
		); err != nil {
			return fmt.Errorf("update edited row: %w", err)
		}

		row, err := getItem(ctx, tx, s.table, keepID)
		if err != nil {
			return err
		}
		result = EditResult{Row: row}
		if keepID != rowID {
			result.MergedInto = keepID
		}
		if duplicateID != 0 {
			logger.Info("edited row merged with duplicate",
				logging.Int64("kept_id", keepID),
				logging.Int64("dropped_id", max(rowID, duplicateID)),
			)
		}
		return nil
	})
	if err != nil {
		return EditResult{}, err
	}
	return result, nil
}

func (s *Store) updateColumn(ctx context.Context, rowID int64, column string, value any) error {
	res, err := s.exec(ctx,
		`UPDATE `+s.table+` SET `+column+` = ?, updated_at = ? WHERE id = ? AND status = ?`,
		value, database.Now(), rowID, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return services.Wrap(services.ErrConflict, "queue", "update_field", fmt.Sprintf("row %d is no longer pending", rowID), nil)
	}
	return nil
}
