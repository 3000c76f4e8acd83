package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeDatabase(); err != nil {
		return err
	}
	c.normalizeMatching()
	if err := c.normalizeMetadata(); err != nil {
		return err
	}
	c.normalizeExtraction()
	c.normalizeLLM()
	c.normalizeGemini()
	c.normalizeTranscription()
	if err := c.normalizeServer(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeDatabase() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	c.Database.DSN = strings.TrimSpace(c.Database.DSN)
	if c.Database.DSN == "" {
		if value, ok := os.LookupEnv("SHELFMARK_DATABASE_DSN"); ok {
			c.Database.DSN = strings.TrimSpace(value)
		}
	}
	c.Database.TablePrefix = strings.TrimSpace(c.Database.TablePrefix)
	if strings.TrimSpace(c.Database.Path) == "" {
		c.Database.Path = defaultDatabasePath
	}
	var err error
	if c.Database.Path, err = expandPath(c.Database.Path); err != nil {
		return fmt.Errorf("database.path: %w", err)
	}
	if c.Database.BusyTimeoutMS <= 0 {
		c.Database.BusyTimeoutMS = defaultBusyTimeoutMS
	}
	return nil
}

func (c *Config) normalizeMatching() {
	if c.Matching.CatalogMinScore <= 0 {
		c.Matching.CatalogMinScore = defaultCatalogMinScore
	}
	if c.Matching.ShelfFuzzyThreshold <= 0 {
		c.Matching.ShelfFuzzyThreshold = defaultShelfFuzzyThreshold
	}
	if c.Matching.LikeCandidateLimit <= 0 {
		c.Matching.LikeCandidateLimit = defaultLikeCandidateLimit
	}
}

func (c *Config) normalizeMetadata() error {
	providers := make([]string, 0, len(c.Metadata.Providers))
	seen := make(map[string]struct{}, len(c.Metadata.Providers))
	for _, name := range c.Metadata.Providers {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		providers = append(providers, normalized)
	}
	c.Metadata.Providers = providers

	if c.Metadata.MinScore <= 0 {
		c.Metadata.MinScore = defaultMetadataMinScore
	}
	if c.Metadata.LimitPerProvider <= 0 {
		c.Metadata.LimitPerProvider = defaultLimitPerProvider
	}
	if c.Metadata.YearLimit <= 0 {
		c.Metadata.YearLimit = defaultYearLimit
	}
	if c.Metadata.TimeoutSeconds <= 0 {
		c.Metadata.TimeoutSeconds = defaultMetadataTimeoutSeconds
	}
	c.Metadata.UserAgent = strings.TrimSpace(c.Metadata.UserAgent)
	if c.Metadata.UserAgent == "" {
		c.Metadata.UserAgent = defaultMetadataUserAgent
	}
	c.Metadata.GoogleBooksAPIKey = strings.TrimSpace(c.Metadata.GoogleBooksAPIKey)
	if c.Metadata.GoogleBooksAPIKey == "" {
		if value, ok := os.LookupEnv("GOOGLE_BOOKS_API_KEY"); ok {
			c.Metadata.GoogleBooksAPIKey = strings.TrimSpace(value)
		}
	}
	c.Metadata.OpenLibraryBaseURL = strings.TrimRight(strings.TrimSpace(c.Metadata.OpenLibraryBaseURL), "/")
	if c.Metadata.OpenLibraryBaseURL == "" {
		c.Metadata.OpenLibraryBaseURL = defaultOpenLibraryBaseURL
	}
	c.Metadata.GoogleBooksBaseURL = strings.TrimRight(strings.TrimSpace(c.Metadata.GoogleBooksBaseURL), "/")
	if c.Metadata.GoogleBooksBaseURL == "" {
		c.Metadata.GoogleBooksBaseURL = defaultGoogleBooksBaseURL
	}
	if c.Metadata.YearCacheTTLHours <= 0 {
		c.Metadata.YearCacheTTLHours = defaultYearCacheTTLHours
	}
	if strings.TrimSpace(c.Metadata.YearCachePath) != "" {
		var err error
		if c.Metadata.YearCachePath, err = expandPath(c.Metadata.YearCachePath); err != nil {
			return fmt.Errorf("metadata.year_cache_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeExtraction() {
	c.Extraction.Provider = strings.ToLower(strings.TrimSpace(c.Extraction.Provider))
	if c.Extraction.Provider == "" {
		c.Extraction.Provider = ExtractionOpenAI
	}
	c.Extraction.TextInstruction = strings.TrimSpace(c.Extraction.TextInstruction)
	if c.Extraction.TextInstruction == "" {
		c.Extraction.TextInstruction = defaultTextInstruction
	}
	c.Extraction.AudioInstruction = strings.TrimSpace(c.Extraction.AudioInstruction)
	if c.Extraction.AudioInstruction == "" {
		c.Extraction.AudioInstruction = c.Extraction.TextInstruction
	}
	c.Extraction.ImageInstruction = strings.TrimSpace(c.Extraction.ImageInstruction)
	if c.Extraction.ImageInstruction == "" {
		c.Extraction.ImageInstruction = defaultImageInstruction
	}
	if c.Extraction.MaxCandidates <= 0 {
		c.Extraction.MaxCandidates = defaultMaxCandidates
	}
	if c.Extraction.MaxImageBytes <= 0 {
		c.Extraction.MaxImageBytes = defaultMaxImageBytes
	}
	if c.Extraction.MaxAudioBytes <= 0 {
		c.Extraction.MaxAudioBytes = defaultMaxAudioBytes
	}
	types := make([]string, 0, len(c.Extraction.AllowedAudioTypes))
	for _, ext := range c.Extraction.AllowedAudioTypes {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext != "" {
			types = append(types, ext)
		}
	}
	if len(types) == 0 {
		types = append(types, defaultAudioTypes...)
	}
	c.Extraction.AllowedAudioTypes = types
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.MaxAttempts <= 0 {
		c.LLM.MaxAttempts = defaultLLMMaxAttempts
	}
	if c.LLM.MaxTokensText <= 0 {
		c.LLM.MaxTokensText = defaultLLMMaxTokensText
	}
	if c.LLM.MaxTokensImage <= 0 {
		c.LLM.MaxTokensImage = defaultLLMMaxTokensImage
	}
}

func (c *Config) normalizeGemini() {
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	if c.Gemini.APIKey == "" {
		if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.Gemini.APIKey = strings.TrimSpace(value)
		}
	}
	c.Gemini.Model = strings.TrimSpace(c.Gemini.Model)
	if c.Gemini.Model == "" {
		c.Gemini.Model = defaultGeminiModel
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.APIKey = strings.TrimSpace(c.Transcription.APIKey)
	c.Transcription.BaseURL = strings.TrimSpace(c.Transcription.BaseURL)
	if c.Transcription.BaseURL == "" {
		c.Transcription.BaseURL = defaultTranscriptionBaseURL
	}
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultTranscriptionModel
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		c.Transcription.TimeoutSeconds = defaultTranscriptionTimeout
	}
}

func (c *Config) normalizeServer() error {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	c.Server.JWTSecret = strings.TrimSpace(c.Server.JWTSecret)
	if c.Server.JWTSecret == "" {
		if value, ok := os.LookupEnv("SHELFMARK_JWT_SECRET"); ok {
			c.Server.JWTSecret = strings.TrimSpace(value)
		}
	}
	if c.Server.TokenTTLHours <= 0 {
		c.Server.TokenTTLHours = defaultTokenTTLHours
	}
	if strings.TrimSpace(c.Server.LockPath) == "" {
		c.Server.LockPath = defaultLockPath
	}
	var err error
	if c.Server.LockPath, err = expandPath(c.Server.LockPath); err != nil {
		return fmt.Errorf("server.lock_path: %w", err)
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = defaultMaxUploadMB
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Dir) != "" {
		var err error
		if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
			return fmt.Errorf("logging.dir: %w", err)
		}
	}
	return nil
}
