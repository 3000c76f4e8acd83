package yearcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func TestCacheStoreAndLookup(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "year_cache.json")
	cache := NewCache(cachePath, time.Hour, nil)

	if err := cache.Store(Entry{Title: "The Hobbit", Author: "J.R.R. Tolkien", Year: intPtr(1937)}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	found, ok := cache.Lookup("  THE <b>Hobbit</b> ", "j.r.r.  tolkien")
	if !ok {
		t.Fatal("Lookup failed to find stored entry under a normalized key")
	}
	if found.Year == nil || *found.Year != 1937 {
		t.Fatalf("Year mismatch: got %v", found.Year)
	}
	if found.CachedAt.IsZero() {
		t.Fatal("expected CachedAt to be stamped")
	}
}

func TestCacheStoresMissingYear(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "year_cache.json"), time.Hour, nil)

	if err := cache.Store(Entry{Title: "Unknown", Author: "Nobody"}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	found, ok := cache.Lookup("Unknown", "Nobody")
	if !ok {
		t.Fatal("expected a cached miss")
	}
	if found.Year != nil {
		t.Fatalf("expected nil year, got %d", *found.Year)
	}
}

func TestCacheExpiresEntries(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "year_cache.json"), 24*time.Hour, nil)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }

	if err := cache.Store(Entry{Title: "Dune", Author: "Frank Herbert", Year: intPtr(1965)}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	cache.now = func() time.Time { return base.Add(23 * time.Hour) }
	if _, ok := cache.Lookup("Dune", "Frank Herbert"); !ok {
		t.Fatal("entry should still be live before the TTL")
	}

	cache.now = func() time.Time { return base.Add(25 * time.Hour) }
	if _, ok := cache.Lookup("Dune", "Frank Herbert"); ok {
		t.Fatal("entry should expire after the TTL")
	}
	if cache.Count() != 0 {
		t.Fatalf("expected expired entries to be excluded from Count, got %d", cache.Count())
	}
}

func TestCachePersistence(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "nested", "year_cache.json")

	first := NewCache(cachePath, time.Hour, nil)
	if err := first.Store(Entry{Title: "Emma", Author: "Jane Austen", Year: intPtr(1815)}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if _, err := os.Stat(cachePath); err != nil {
		t.Fatalf("cache file not written: %v", err)
	}
	if _, err := os.Stat(cachePath + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file should be renamed away, stat err=%v", err)
	}

	second := NewCache(cachePath, time.Hour, nil)
	found, ok := second.Lookup("Emma", "Jane Austen")
	if !ok || found.Year == nil || *found.Year != 1815 {
		t.Fatalf("expected persisted entry, got %+v ok=%v", found, ok)
	}
}

func TestCacheCorruptFileStartsEmpty(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "year_cache.json")
	if err := os.WriteFile(cachePath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	cache := NewCache(cachePath, time.Hour, nil)
	if cache.Count() != 0 {
		t.Fatalf("expected empty cache, got %d", cache.Count())
	}
	if err := cache.Store(Entry{Title: "Emma", Author: "Jane Austen"}); err != nil {
		t.Fatalf("Store after corrupt load failed: %v", err)
	}
}

func TestCacheEmptyPathIsNoop(t *testing.T) {
	cache := NewCache("", time.Hour, nil)
	if err := cache.Store(Entry{Title: "Emma", Author: "Jane Austen", Year: intPtr(1815)}); err != nil {
		t.Fatalf("Store should be a no-op, got %v", err)
	}
	if _, ok := cache.Lookup("Emma", "Jane Austen"); ok {
		t.Fatal("Lookup should miss when the cache is disabled")
	}
	if cache.Count() != 0 {
		t.Fatal("Count should be zero when disabled")
	}
	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear should be a no-op, got %v", err)
	}
}

func TestCacheStoreRequiresTitleAndAuthor(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "year_cache.json"), time.Hour, nil)
	if err := cache.Store(Entry{Title: "  ", Author: "Someone"}); err == nil {
		t.Fatal("expected error for blank title")
	}
	if err := cache.Store(Entry{Title: "Something", Author: ""}); err == nil {
		t.Fatal("expected error for blank author")
	}
}

func TestCacheClear(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "year_cache.json"), 0, nil)
	for _, title := range []string{"Emma", "Persuasion"} {
		if err := cache.Store(Entry{Title: title, Author: "Jane Austen"}); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}
	if cache.Count() != 2 {
		t.Fatalf("expected 2 entries, got %d", cache.Count())
	}
	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if cache.Count() != 0 {
		t.Fatalf("expected empty cache after Clear, got %d", cache.Count())
	}
}
