package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a pending candidate.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusDiscarded Status = "discarded"
)

// InputType records which modality produced a candidate.
type InputType string

const (
	InputText  InputType = "text"
	InputAudio InputType = "audio"
	InputImage InputType = "image"
)

// ParseInputType converts user input into an InputType. Empty input means text.
func ParseInputType(value string) (InputType, bool) {
	switch InputType(strings.ToLower(strings.TrimSpace(value))) {
	case "", InputText:
		return InputText, true
	case InputAudio:
		return InputAudio, true
	case InputImage:
		return InputImage, true
	default:
		return "", false
	}
}

// Field names an inline-editable column.
type Field string

const (
	FieldTitle  Field = "title"
	FieldAuthor Field = "author"
	FieldYear   Field = "year"
	FieldISBN   Field = "isbn"
)

// ParseField validates an edit target.
func ParseField(value string) (Field, bool) {
	switch Field(strings.ToLower(strings.TrimSpace(value))) {
	case FieldTitle:
		return FieldTitle, true
	case FieldAuthor:
		return FieldAuthor, true
	case FieldYear:
		return FieldYear, true
	case FieldISBN:
		return FieldISBN, true
	default:
		return "", false
	}
}

// PendingCandidate is one row of the confirmation queue.
type PendingCandidate struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	InputType        InputType `json:"input_type"`
	SourceNote       string    `json:"source_note,omitempty"`
	Title            string    `json:"title"`
	Author           string    `json:"author"`
	NormalizedTitle  string    `json:"normalized_title"`
	NormalizedAuthor string    `json:"normalized_author"`
	Fingerprint      string    `json:"fingerprint"`
	Year             *int      `json:"year"`
	ExternalISBN     string    `json:"external_isbn,omitempty"`
	ExternalSource   string    `json:"external_source,omitempty"`
	ExternalScore    *float64  `json:"external_score,omitempty"`
	MatchMethod      string    `json:"match_method,omitempty"`
	MatchedBookID    *int64    `json:"matched_book_id,omitempty"`
	Status           Status    `json:"status"`
	RawResponse      string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Candidate is an extracted (title, author) pair plus optional enrichment.
type Candidate struct {
	Title         string   `json:"title" yaml:"title"`
	Author        string   `json:"author" yaml:"author"`
	Year          *int     `json:"year,omitempty" yaml:"year,omitempty"`
	ISBN          string   `json:"isbn,omitempty" yaml:"isbn,omitempty"`
	Source        string   `json:"source,omitempty" yaml:"source,omitempty"`
	Score         *float64 `json:"score,omitempty" yaml:"score,omitempty"`
	MatchMethod   string   `json:"match_method,omitempty" yaml:"match_method,omitempty"`
	MatchedBookID *int64   `json:"matched_book_id,omitempty" yaml:"matched_book_id,omitempty"`
}

// Meta describes the request a batch of candidates came from.
type Meta struct {
	InputType   InputType
	SourceNote  string
	RawResponse string
}

// ItemReport is the per-candidate line returned to the caller of Enqueue.
// Skipped duplicates of pending rows are not reported.
type ItemReport struct {
	ID      int64  `json:"id,omitempty"`
	Title   string `json:"title"`
	Author  string `json:"author"`
	Year    *int   `json:"year"`
	InShelf bool   `json:"in_shelf"`
}

// EnqueueResult summarizes one Enqueue call.
type EnqueueResult struct {
	Queued  int          `json:"queued"`
	Skipped int          `json:"skipped"`
	Items   []ItemReport `json:"items"`
}

// EditResult is the outcome of UpdateField. MergedInto is set when the edit
// collided with another pending row and Row is that surviving row.
type EditResult struct {
	Row        *PendingCandidate `json:"row"`
	MergedInto int64             `json:"merged_into,omitempty"`
}
