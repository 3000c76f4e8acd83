package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"shelfmark/internal/metadata"
	"shelfmark/internal/textutil"
)

// Name is the provider identifier reported on candidates.
const Name = "openlibrary"

var isbn13Pattern = regexp.MustCompile(`^\d{13}$`)

// Doc is one entry of the search.json "docs" array.
type Doc struct {
	Title                 string   `json:"title"`
	TitleSuggest          string   `json:"title_suggest"`
	AuthorName            []string `json:"author_name"`
	AuthorAlternativeName []string `json:"author_alternative_name"`
	ISBN                  []string `json:"isbn"`
	FirstPublishYear      int      `json:"first_publish_year"`
	PublishYear           []int    `json:"publish_year"`
	PublishDate           []string `json:"publish_date"`
}

// Response models the search.json payload.
type Response struct {
	NumFound int   `json:"numFound"`
	Docs     []Doc `json:"docs"`
}

// Client provides access to the Open Library search endpoint.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

var _ metadata.Provider = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates an Open Library client.
func New(baseURL, userAgent string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("openlibrary base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  strings.TrimSpace(userAgent),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Name implements metadata.Provider.
func (c *Client) Name() string { return Name }

// Search implements metadata.Provider.
func (c *Client) Search(ctx context.Context, title, author string, limit int) ([]metadata.Record, error) {
	payload, err := c.SearchDocs(ctx, title, author, limit)
	if err != nil {
		return nil, err
	}
	records := make([]metadata.Record, 0, len(payload.Docs))
	for _, doc := range payload.Docs {
		if record, ok := doc.Record(); ok {
			records = append(records, record)
		}
	}
	return records, nil
}

// SearchDocs performs a raw search.json query.
func (c *Client) SearchDocs(ctx context.Context, title, author string, limit int) (*Response, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" && author == "" {
		return nil, errors.New("title or author must not be empty")
	}
	endpoint, err := url.Parse(c.baseURL + "/search.json")
	if err != nil {
		return nil, fmt.Errorf("parse openlibrary url: %w", err)
	}
	params := url.Values{}
	if title != "" {
		params.Set("title", title)
	}
	if author != "" {
		params.Set("author", author)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("openlibrary search returned %d (latency=%v)", resp.StatusCode, latency)
	}

	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode openlibrary response: %w", err)
	}
	return &payload, nil
}

// Record maps a doc to the common record shape. Docs without any title are
// rejected.
func (d Doc) Record() (metadata.Record, bool) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		title = strings.TrimSpace(d.TitleSuggest)
	}
	if title == "" {
		return metadata.Record{}, false
	}
	return metadata.Record{
		Title:  title,
		Author: d.author(),
		ISBN:   pickISBN(d.ISBN),
		Year:   d.year(),
	}, true
}

func (d Doc) year() *int {
	if d.FirstPublishYear > 0 {
		y := d.FirstPublishYear
		return &y
	}
	for _, y := range d.PublishYear {
		if y > 0 {
			return &y
		}
	}
	for _, date := range d.PublishDate {
		if y := textutil.ExtractYear(date); y != nil {
			return y
		}
	}
	return nil
}

// pickISBN prefers the first 13-digit entry and otherwise returns the first.
func pickISBN(values []string) string {
	for _, v := range values {
		if isbn13Pattern.MatchString(strings.TrimSpace(v)) {
			return strings.TrimSpace(v)
		}
	}
	if len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

func (d Doc) author() string {
	if len(d.AuthorName) > 0 {
		if name := strings.TrimSpace(d.AuthorName[0]); name != "" {
			return name
		}
	}
	if len(d.AuthorAlternativeName) > 0 {
		return strings.TrimSpace(d.AuthorAlternativeName[0])
	}
	return ""
}
