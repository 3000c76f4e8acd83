package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"shelfmark/internal/queue"
	"shelfmark/internal/services/llm"
)

// ErrUnexpectedShape reports a model reply that is valid JSON but neither an
// object with "books" nor an array.
var ErrUnexpectedShape = errors.New("model reply is not a books list")

type bookJSON struct {
	Title  any `json:"title"`
	Author any `json:"author"`
}

// ParseBooks decodes a model reply into candidates. Both {"books":[...]} and a
// bare array are accepted, optionally wrapped in a code fence. Entries are
// returned as-is; empty ones are filtered later by the queue.
func ParseBooks(content string) ([]queue.Candidate, error) {
	var raw json.RawMessage
	if err := llm.DecodeLLMJSON(content, &raw); err != nil {
		return nil, fmt.Errorf("decode model reply: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrUnexpectedShape
	}

	var books []bookJSON
	switch raw[0] {
	case '{':
		var envelope struct {
			Books *[]bookJSON `json:"books"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("decode books object: %w", err)
		}
		if envelope.Books == nil {
			return nil, ErrUnexpectedShape
		}
		books = *envelope.Books
	case '[':
		if err := json.Unmarshal(raw, &books); err != nil {
			return nil, fmt.Errorf("decode books array: %w", err)
		}
	default:
		return nil, ErrUnexpectedShape
	}

	candidates := make([]queue.Candidate, 0, len(books))
	for _, book := range books {
		candidates = append(candidates, queue.Candidate{
			Title:  scalarString(book.Title),
			Author: scalarString(book.Author),
		})
	}
	return candidates, nil
}

// scalarString renders strings and numbers; anything else becomes empty.
func scalarString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// BuildPrompt appends the user's text to an instruction.
func BuildPrompt(instruction, text string) string {
	return instruction + "\n\nText:\n\"" + text + "\""
}
