package yearcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"shelfmark/internal/logging"
	"shelfmark/internal/textutil"
)

// Entry is a cached year lookup. A nil Year records that the providers had no
// usable answer, which is cached too.
type Entry struct {
	Key      string    `json:"key"`
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	Year     *int      `json:"year"`
	CachedAt time.Time `json:"cached_at"`
}

// Cache provides thread-safe access to the year cache file.
type Cache struct {
	path    string
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
	mu      sync.RWMutex
	entries map[string]Entry // keyed by normalized title|author
}

// NewCache creates a cache backed by path. An empty path yields a cache whose
// operations are no-ops. A ttl <= 0 keeps entries forever. The file is written
// lazily on the first Store.
func NewCache(path string, ttl time.Duration, logger *slog.Logger) *Cache {
	logger = logging.NewComponentLogger(logger, "yearcache")

	c := &Cache{
		path:    path,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]Entry),
	}
	if path == "" {
		return c
	}

	if err := c.load(); err != nil {
		logger.Warn("failed to load year cache",
			logging.String(logging.FieldEventType, "yearcache_load_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "cache will start empty"),
			logging.String(logging.FieldImpact, "years will be fetched from providers again"))
	}
	return c
}

// Key derives the cache key for a title and author.
func Key(title, author string) string {
	return textutil.Normalize(title) + "|" + textutil.Normalize(author)
}

// Lookup returns the live entry for (title, author). Expired entries are
// reported as missing.
func (c *Cache) Lookup(title, author string) (Entry, bool) {
	if c.path == "" {
		return Entry{}, false
	}
	key := Key(title, author)

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.entries[key]
	if !found || c.expired(entry) {
		return Entry{}, false
	}
	return entry, true
}

// Store records a lookup outcome and persists the cache.
func (c *Cache) Store(entry Entry) error {
	entry.Title = strings.TrimSpace(entry.Title)
	entry.Author = strings.TrimSpace(entry.Author)
	if entry.Title == "" || entry.Author == "" {
		return errors.New("title and author are required")
	}
	if c.path == "" {
		return nil
	}
	entry.Key = Key(entry.Title, entry.Author)
	if entry.CachedAt.IsZero() {
		entry.CachedAt = c.now().UTC()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[entry.Key] = entry
	c.pruneLocked()

	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}

	c.logger.Debug("cached publication year",
		logging.String("key", entry.Key),
		logging.Any("year", entry.Year))
	return nil
}

// Clear removes all entries and persists the empty cache.
func (c *Cache) Clear() error {
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry)
	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	c.logger.Debug("cleared year cache")
	return nil
}

// Count returns the number of live entries.
func (c *Cache) Count() int {
	if c.path == "" {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, entry := range c.entries {
		if !c.expired(entry) {
			n++
		}
	}
	return n
}

func (c *Cache) expired(entry Entry) bool {
	if c.ttl <= 0 {
		return false
	}
	return c.now().Sub(entry.CachedAt) > c.ttl
}

func (c *Cache) pruneLocked() {
	for key, entry := range c.entries {
		if c.expired(entry) {
			delete(c.entries, key)
		}
	}
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}

	c.entries = make(map[string]Entry, len(entries))
	for _, entry := range entries {
		if entry.Key == "" {
			entry.Key = Key(entry.Title, entry.Author)
		}
		if entry.Key == "|" || c.expired(entry) {
			continue
		}
		c.entries[entry.Key] = entry
	}

	c.logger.Debug("loaded year cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String("path", c.path))
	return nil
}

// save writes the cache atomically through a temp file.
func (c *Cache) save() error {
	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CachedAt.Equal(entries[j].CachedAt) {
			return entries[i].Key < entries[j].Key
		}
		return entries[i].CachedAt.After(entries[j].CachedAt)
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
