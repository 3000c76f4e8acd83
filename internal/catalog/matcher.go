package catalog

import (
	"context"
	"fmt"
	"strings"

	"shelfmark/internal/database"
	"shelfmark/internal/logging"
	"shelfmark/internal/textutil"
)

// FindBestMatch runs the matcher tiers in order and stops at the first hit:
// fingerprint equality, then a LIKE scan over the normalized columns, then the
// same scan over the raw columns. LIKE candidates must score at least the
// configured floor.
func (s *Store) FindBestMatch(ctx context.Context, title, author string) (Match, error) {
	normalizedTitle := textutil.Normalize(title)
	normalizedAuthor := textutil.Normalize(author)
	fingerprint := textutil.FingerprintNormalized(normalizedTitle, normalizedAuthor)

	book, err := s.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		return Match{}, err
	}
	if book != nil {
		return Match{Book: book, Method: MethodHash, Score: 100}, nil
	}
	if normalizedTitle == "" || normalizedAuthor == "" {
		return Match{Method: MethodNone}, nil
	}

	tiers := []struct {
		method       Method
		titleColumn  string
		authorColumn string
		title        string
		author       string
	}{
		{MethodNormalizedLike, "normalized_title", "normalized_author", normalizedTitle, normalizedAuthor},
		{MethodRawLike, "title", "author", strings.TrimSpace(title), strings.TrimSpace(author)},
	}
	for _, tier := range tiers {
		candidates, err := s.likeCandidates(ctx, tier.titleColumn, tier.authorColumn, tier.title, tier.author)
		if err != nil {
			return Match{}, fmt.Errorf("%s tier: %w", tier.method, err)
		}
		best, score := bestCandidate(candidates, tier.method == MethodNormalizedLike, normalizedTitle, normalizedAuthor)
		if best != nil && score >= s.minScore {
			s.logger.Debug("catalog fuzzy match", logging.Args(logging.MatchAttrs(string(tier.method), best.ID, score)...)...)
			return Match{Book: best, Method: tier.method, Score: score}, nil
		}
	}
	return Match{Method: MethodNone}, nil
}

func (s *Store) likeCandidates(ctx context.Context, titleColumn, authorColumn, title, author string) ([]Book, error) {
	rows, err := s.q().QueryContext(ctx,
		`SELECT `+bookColumns+` FROM `+s.tables.Books+`
         WHERE `+titleColumn+` LIKE ? ESCAPE '`+database.LikeEscape+`'
           AND `+authorColumn+` LIKE ? ESCAPE '`+database.LikeEscape+`'
         ORDER BY id LIMIT ?`,
		database.ContainsPattern(title), database.ContainsPattern(author), s.likeLimit,
	)
	if err != nil {
		return nil, err
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

// bestCandidate scores every candidate against the normalized query and keeps
// the first one with the strictly highest score. Raw-tier candidates are
// normalized from their raw columns; stored normalized values are used
// otherwise when present.
func bestCandidate(candidates []Book, useStored bool, normalizedTitle, normalizedAuthor string) (*Book, float64) {
	var (
		best      *Book
		bestScore = -1.0
	)
	for i := range candidates {
		candidate := &candidates[i]
		candidateTitle, candidateAuthor := candidate.NormalizedTitle, candidate.NormalizedAuthor
		if !useStored || candidateTitle == "" {
			candidateTitle = textutil.Normalize(candidate.Title)
		}
		if !useStored || candidateAuthor == "" {
			candidateAuthor = textutil.Normalize(candidate.Author)
		}
		score := textutil.Score(candidateTitle, candidateAuthor, normalizedTitle, normalizedAuthor)
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best, bestScore
}
