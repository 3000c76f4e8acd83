package queue

import (
	"context"
	"fmt"
	"strings"

	"shelfmark/internal/database"
	"shelfmark/internal/logging"
	"shelfmark/internal/services"
	"shelfmark/internal/textutil"
)

// Enqueue stages candidates for confirmation, in batch order. A candidate is
// skipped when its title or author is empty, when its fingerprint already
// appeared earlier in the batch, when the user owns it (reported with
// InShelf), or when a pending row already exists (not reported). Losing an
// insert race to a concurrent request also counts as skipped.
func (s *Store) Enqueue(ctx context.Context, userID int64, candidates []Candidate, meta Meta) (EnqueueResult, error) {
	result := EnqueueResult{Items: []ItemReport{}}
	if userID <= 0 {
		return result, services.Wrap(services.ErrValidation, "queue", "enqueue", "user id is required", nil)
	}
	inputType, ok := ParseInputType(string(meta.InputType))
	if !ok {
		return result, services.Wrap(services.ErrValidation, "queue", "enqueue", fmt.Sprintf("unknown input type %q", meta.InputType), nil)
	}
	meta.InputType = inputType

	ctx = services.WithUserID(ctx, userID)
	logger := logging.WithContext(ctx, s.logger)
	seen := make(map[string]struct{}, len(candidates))

	for _, candidate := range candidates {
		title := strings.TrimSpace(candidate.Title)
		author := strings.TrimSpace(candidate.Author)
		normalizedTitle := textutil.Normalize(title)
		normalizedAuthor := textutil.Normalize(author)
		if normalizedTitle == "" || normalizedAuthor == "" {
			result.Skipped++
			continue
		}

		fingerprint := textutil.FingerprintNormalized(normalizedTitle, normalizedAuthor)
		if _, dup := seen[fingerprint]; dup {
			result.Skipped++
			continue
		}
		seen[fingerprint] = struct{}{}

		if s.shelf != nil {
			owned, err := s.shelf.FindOwned(ctx, userID, fingerprint)
			if err != nil {
				return result, fmt.Errorf("check shelf: %w", err)
			}
			if owned != nil {
				result.Skipped++
				result.Items = append(result.Items, ItemReport{Title: title, Author: author, Year: owned.Year, InShelf: true})
				continue
			}
		}

		existing, err := s.FindPending(ctx, userID, fingerprint)
		if err != nil {
			return result, err
		}
		if existing != nil {
			result.Skipped++
			continue
		}

		candidate.Title = title
		candidate.Author = author
		if s.enricher != nil {
			enriched := s.enricher.Enrich(ctx, candidate)
			enriched.Title, enriched.Author = title, author
			candidate = enriched
		}

		id, err := s.insertPending(ctx, userID, candidate, meta, normalizedTitle, normalizedAuthor, fingerprint)
		if err != nil {
			if database.IsUniqueViolation(err) {
				logger.Debug("pending insert lost race", logging.String(logging.FieldFingerprint, fingerprint))
				result.Skipped++
				continue
			}
			return result, err
		}
		result.Queued++
		result.Items = append(result.Items, ItemReport{ID: id, Title: title, Author: author, Year: positiveYear(candidate.Year)})
	}

	logger.Info("candidates enqueued",
		logging.String("input_type", string(meta.InputType)),
		logging.Int("received", len(candidates)),
		logging.Int("queued", result.Queued),
		logging.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *Store) insertPending(ctx context.Context, userID int64, c Candidate, meta Meta, normalizedTitle, normalizedAuthor, fingerprint string) (int64, error) {
	now := database.Now()
	res, err := s.exec(ctx,
		`INSERT INTO `+s.table+` (
            user_id, input_type, source_note, title, author, normalized_title, normalized_author,
            title_author_hash, year, external_isbn, external_source, external_score,
            match_method, matched_book_id, status, raw_response, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID,
		meta.InputType,
		database.NullableString(meta.SourceNote),
		c.Title,
		c.Author,
		normalizedTitle,
		normalizedAuthor,
		fingerprint,
		database.NullableInt(positiveYear(c.Year)),
		database.NullableString(textutil.SanitizeISBN(c.ISBN)),
		database.NullableString(c.Source),
		database.NullableFloat(c.Score),
		database.NullableString(c.MatchMethod),
		database.NullableInt64(c.MatchedBookID),
		StatusPending,
		database.NullableString(meta.RawResponse),
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert pending row: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func positiveYear(year *int) *int {
	if year == nil || *year <= 0 {
		return nil
	}
	return year
}
