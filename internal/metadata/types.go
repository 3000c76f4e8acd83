package metadata

import "context"

// Record is one provider search hit mapped to the common shape.
type Record struct {
	Title  string
	Author string
	ISBN   string
	Year   *int
}

// Provider is a bibliographic search backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, title, author string, limit int) ([]Record, error)
}

// Candidate is the resolved external match for a query. Score is the 0-100
// similarity against the query, not the provider's relevance.
type Candidate struct {
	Title  string  `json:"title"`
	Author string  `json:"author"`
	ISBN   string  `json:"isbn,omitempty"`
	Source string  `json:"source"`
	Year   *int    `json:"year"`
	Score  float64 `json:"score"`
}

// Config holds the Resolver thresholds.
type Config struct {
	MinScore         float64
	LimitPerProvider int
	YearLimit        int
}
