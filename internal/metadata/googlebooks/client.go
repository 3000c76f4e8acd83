package googlebooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shelfmark/internal/metadata"
	"shelfmark/internal/textutil"
)

// Name is the provider identifier reported on candidates.
const Name = "googlebooks"

// maxResultsCap is the largest page the volumes endpoint accepts.
const maxResultsCap = 40

// IndustryIdentifier is an ISBN or other identifier on a volume.
type IndustryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

// VolumeInfo carries the bibliographic part of a volume.
type VolumeInfo struct {
	Title               string               `json:"title"`
	Authors             []string             `json:"authors"`
	PublishedDate       string               `json:"publishedDate"`
	IndustryIdentifiers []IndustryIdentifier `json:"industryIdentifiers"`
}

// Volume is one search hit.
type Volume struct {
	ID         string     `json:"id"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
}

// Response models the volumes search payload.
type Response struct {
	TotalItems int      `json:"totalItems"`
	Items      []Volume `json:"items"`
}

// Client provides access to the Google Books volumes endpoint.
type Client struct {
	apiKey     string
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

// WithAPIKey attaches an API key to every request. Google Books works without
// one at a lower quota.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// New creates a Google Books client.
func New(baseURL, userAgent string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("googlebooks base url required")
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
	payload, err := c.SearchVolumes(ctx, title, author, limit)
	if err != nil {
		return nil, err
	}
	records := make([]metadata.Record, 0, len(payload.Items))
	for _, volume := range payload.Items {
		if record, ok := volume.Record(); ok {
			records = append(records, record)
		}
	}
	return records, nil
}

// Query builds the q parameter: intitle:T inauthor:A, omitting empty parts.
func Query(title, author string) string {
	parts := make([]string, 0, 2)
	if title = strings.TrimSpace(title); title != "" {
		parts = append(parts, "intitle:"+title)
	}
	if author = strings.TrimSpace(author); author != "" {
		parts = append(parts, "inauthor:"+author)
	}
	return strings.Join(parts, " ")
}

// SearchVolumes performs a raw volumes query.
func (c *Client) SearchVolumes(ctx context.Context, title, author string, limit int) (*Response, error) {
	query := Query(title, author)
	if query == "" {
		return nil, errors.New("title or author must not be empty")
	}
	endpoint, err := url.Parse(c.baseURL + "/volumes")
	if err != nil {
		return nil, fmt.Errorf("parse googlebooks url: %w", err)
	}
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("maxResults", strconv.Itoa(min(limit, maxResultsCap)))
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
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
		return nil, fmt.Errorf("googlebooks search returned %d (latency=%v)", resp.StatusCode, latency)
	}

	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode googlebooks response: %w", err)
	}
	return &payload, nil
}

// Record maps a volume to the common record shape. Volumes without a title
// are rejected.
func (v Volume) Record() (metadata.Record, bool) {
	info := v.VolumeInfo
	title := strings.TrimSpace(info.Title)
	if title == "" {
		return metadata.Record{}, false
	}
	author := ""
	if len(info.Authors) > 0 {
		author = strings.TrimSpace(info.Authors[0])
	}
	return metadata.Record{
		Title:  title,
		Author: author,
		ISBN:   pickISBN(info.IndustryIdentifiers),
		Year:   textutil.ExtractYear(info.PublishedDate),
	}, true
}

// pickISBN prefers ISBN_13 and otherwise returns the first identifier.
func pickISBN(ids []IndustryIdentifier) string {
	for _, id := range ids {
		if id.Type == "ISBN_13" {
			return strings.TrimSpace(id.Identifier)
		}
	}
	if len(ids) > 0 {
		return strings.TrimSpace(ids[0].Identifier)
	}
	return ""
}
