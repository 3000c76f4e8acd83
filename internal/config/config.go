package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Database selects the store backing the queue and the catalog tables.
type Database struct {
	Driver        string `toml:"driver"` // sqlite or mysql
	Path          string `toml:"path"`
	DSN           string `toml:"dsn"`
	TablePrefix   string `toml:"table_prefix"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`
}

// Matching contains thresholds for catalog matching and shelf detection.
type Matching struct {
	CatalogMinScore     float64 `toml:"catalog_min_score"`
	ShelfFuzzyThreshold float64 `toml:"shelf_fuzzy_threshold"`
	LikeCandidateLimit  int     `toml:"like_candidate_limit"`
}

// Metadata contains configuration for external bibliographic providers.
type Metadata struct {
	Providers          []string `toml:"providers"`
	MinScore           float64  `toml:"min_score"`
	LimitPerProvider   int      `toml:"limit_per_provider"`
	YearLimit          int      `toml:"year_limit"`
	TimeoutSeconds     int      `toml:"timeout_seconds"`
	UserAgent          string   `toml:"user_agent"`
	GoogleBooksAPIKey  string   `toml:"google_books_api_key"`
	OpenLibraryBaseURL string   `toml:"openlibrary_base_url"`
	GoogleBooksBaseURL string   `toml:"googlebooks_base_url"`
	EnrichOnIngest     bool     `toml:"enrich_on_ingest"`
	YearCachePath      string   `toml:"year_cache_path"`
	YearCacheTTLHours  int      `toml:"year_cache_ttl_hours"`
}

// Extraction selects the model provider and the per-modality instructions.
type Extraction struct {
	Provider          string   `toml:"provider"` // openai or gemini
	TextInstruction   string   `toml:"text_instruction"`
	AudioInstruction  string   `toml:"audio_instruction"`
	ImageInstruction  string   `toml:"image_instruction"`
	MaxCandidates     int      `toml:"max_candidates"`
	MaxImageBytes     int64    `toml:"max_image_bytes"`
	MaxAudioBytes     int64    `toml:"max_audio_bytes"`
	AllowedAudioTypes []string `toml:"allowed_audio_types"`
}

// LLM contains OpenAI-compatible chat completion settings.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxAttempts    int    `toml:"max_attempts"`
	MaxTokensText  int    `toml:"max_tokens_text"`
	MaxTokensImage int    `toml:"max_tokens_image"`
}

// Gemini contains Google Gemini settings used when extraction.provider is gemini.
type Gemini struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// Transcription contains speech-to-text settings for dictated input.
type Transcription struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Server contains HTTP API settings.
type Server struct {
	Bind          string `toml:"bind"`
	JWTSecret     string `toml:"jwt_secret"`
	TokenTTLHours int    `toml:"token_ttl_hours"`
	LockPath      string `toml:"lock_path"`
	MaxUploadMB   int    `toml:"max_upload_mb"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for shelfmark.
//
// Configuration sections by subsystem:
//   - Database: store driver, location, and catalog table prefix
//   - Matching: catalog fuzzy-match floor and shelf detection threshold
//   - Metadata: Open Library / Google Books providers and the year cache
//   - Extraction: model provider and prompts per input modality
//   - LLM, Gemini, Transcription: upstream model connections
//   - Server: HTTP API bind address, JWT secret, instance lock
//   - Logging: log format, level, and directory
type Config struct {
	Debug         bool          `toml:"debug"`
	Database      Database      `toml:"database"`
	Matching      Matching      `toml:"matching"`
	Metadata      Metadata      `toml:"metadata"`
	Extraction    Extraction    `toml:"extraction"`
	LLM           LLM           `toml:"llm"`
	Gemini        Gemini        `toml:"gemini"`
	Transcription Transcription `toml:"transcription"`
	Server        Server        `toml:"server"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shelfmark.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories holding the SQLite store, the year
// cache, logs, and the server lock file.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Logging.Dir}
	if c.Database.Driver == DriverSQLite {
		dirs = append(dirs, filepath.Dir(c.Database.Path))
	}
	if c.Metadata.YearCachePath != "" {
		dirs = append(dirs, filepath.Dir(c.Metadata.YearCachePath))
	}
	if c.Server.LockPath != "" {
		dirs = append(dirs, filepath.Dir(c.Server.LockPath))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// MetadataTimeout returns the per-request timeout for bibliographic providers.
func (c *Config) MetadataTimeout() time.Duration {
	return time.Duration(c.Metadata.TimeoutSeconds) * time.Second
}

// YearCacheTTL returns how long resolved publication years stay cached.
func (c *Config) YearCacheTTL() time.Duration {
	return time.Duration(c.Metadata.YearCacheTTLHours) * time.Hour
}

// TokenTTL returns the lifetime of minted API tokens.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Server.TokenTTLHours) * time.Hour
}

// TranscriptionSettings returns the speech-to-text connection, falling back to
// the [llm] credentials when no dedicated key is configured.
func (c *Config) TranscriptionSettings() Transcription {
	t := c.Transcription
	if strings.TrimSpace(t.APIKey) == "" {
		t.APIKey = strings.TrimSpace(c.LLM.APIKey)
	}
	return t
}
