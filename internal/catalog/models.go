package catalog

import "time"

// Method names the matcher tier that produced a result.
type Method string

const (
	MethodHash           Method = "hash"
	MethodNormalizedLike Method = "normalized_like"
	MethodRawLike        Method = "raw_like"
	MethodNone           Method = "none"
)

// Book is one canonical catalog row.
type Book struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	Author           string    `json:"author"`
	NormalizedTitle  string    `json:"normalized_title"`
	NormalizedAuthor string    `json:"normalized_author"`
	Fingerprint      string    `json:"fingerprint"`
	Year             *int      `json:"year"`
	ISBN             string    `json:"isbn,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Match is the outcome of FindBestMatch. Book is nil when Method is MethodNone.
type Match struct {
	Book   *Book   `json:"book,omitempty"`
	Method Method  `json:"method"`
	Score  float64 `json:"score"`
}

// Found reports whether a catalog row matched.
func (m Match) Found() bool {
	return m.Book != nil && m.Method != MethodNone
}

// Extra carries optional fields written when Ensure creates a row.
type Extra struct {
	Year *int
	ISBN string
}

// EnsureResult describes the catalog row Ensure resolved or created.
type EnsureResult struct {
	BookID  int64  `json:"book_id"`
	Created bool   `json:"created"`
	Method  Method `json:"method"`
	Book    *Book  `json:"book"`
}

// Stats summarizes catalog contents for status output.
type Stats struct {
	Books int64 `json:"books"`
	Links int64 `json:"links"`
}
