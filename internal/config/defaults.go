package config

const (
	// DriverSQLite stores everything in a local SQLite file.
	DriverSQLite = "sqlite"
	// DriverMySQL connects to a MySQL database shared with the catalog owner.
	DriverMySQL = "mysql"

	// ProviderOpenLibrary names the Open Library search provider.
	ProviderOpenLibrary = "openlibrary"
	// ProviderGoogleBooks names the Google Books volumes provider.
	ProviderGoogleBooks = "googlebooks"

	// ExtractionOpenAI routes extraction through an OpenAI-compatible chat endpoint.
	ExtractionOpenAI = "openai"
	// ExtractionGemini routes extraction through Google Gemini.
	ExtractionGemini = "gemini"
)

const (
	defaultConfigPath             = "~/.config/shelfmark/config.toml"
	defaultDatabasePath           = "~/.local/share/shelfmark/shelfmark.db"
	defaultBusyTimeoutMS          = 5000
	defaultCatalogMinScore        = 55
	defaultShelfFuzzyThreshold    = 0.25
	defaultLikeCandidateLimit     = 20
	defaultMetadataMinScore       = 62
	defaultLimitPerProvider       = 5
	defaultYearLimit              = 3
	defaultMetadataTimeoutSeconds = 15
	defaultMetadataUserAgent      = "shelfmark/dev (+https://github.com/shelfmark/shelfmark)"
	defaultOpenLibraryBaseURL     = "https://openlibrary.org"
	defaultGoogleBooksBaseURL     = "https://www.googleapis.com/books/v1"
	defaultYearCachePath          = "~/.cache/shelfmark/year_cache.json"
	defaultYearCacheTTLHours      = 24
	defaultLLMBaseURL             = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel               = "gpt-4o"
	defaultLLMTimeoutSeconds      = 90
	defaultLLMMaxAttempts         = 1
	defaultLLMMaxTokensText       = 1500
	defaultLLMMaxTokensImage      = 2000
	defaultGeminiModel            = "gemini-1.5-flash"
	defaultTranscriptionBaseURL   = "https://api.openai.com/v1/audio/transcriptions"
	defaultTranscriptionModel     = "whisper-1"
	defaultTranscriptionTimeout   = 90
	defaultMaxCandidates          = 50
	defaultMaxImageBytes          = 8 << 20
	defaultMaxAudioBytes          = 25 << 20
	defaultServerBind             = "127.0.0.1:7490"
	defaultTokenTTLHours          = 24 * 30
	defaultLockPath               = "~/.local/share/shelfmark/shelfmark.lock"
	defaultMaxUploadMB            = 25
	defaultLogDir                 = "~/.local/share/shelfmark/logs"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"

	defaultTextInstruction  = `From the following text, extract the books mentioned and return ONLY a JSON object shaped as { "books": [ { "title": "...", "author": "..." } ] }.`
	defaultImageInstruction = `Analyze the image and return ONLY a JSON object shaped as { "books": [ { "title": "...", "author": "..." } ] }. Omit doubtful items.`
)

var defaultAudioTypes = []string{"webm", "mp4", "m4a", "wav", "ogg", "mp3"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Database: Database{
			Driver:        DriverSQLite,
			Path:          defaultDatabasePath,
			BusyTimeoutMS: defaultBusyTimeoutMS,
		},
		Matching: Matching{
			CatalogMinScore:     defaultCatalogMinScore,
			ShelfFuzzyThreshold: defaultShelfFuzzyThreshold,
			LikeCandidateLimit:  defaultLikeCandidateLimit,
		},
		Metadata: Metadata{
			Providers:          []string{ProviderOpenLibrary, ProviderGoogleBooks},
			MinScore:           defaultMetadataMinScore,
			LimitPerProvider:   defaultLimitPerProvider,
			YearLimit:          defaultYearLimit,
			TimeoutSeconds:     defaultMetadataTimeoutSeconds,
			UserAgent:          defaultMetadataUserAgent,
			OpenLibraryBaseURL: defaultOpenLibraryBaseURL,
			GoogleBooksBaseURL: defaultGoogleBooksBaseURL,
			YearCachePath:      defaultYearCachePath,
			YearCacheTTLHours:  defaultYearCacheTTLHours,
		},
		Extraction: Extraction{
			Provider:          ExtractionOpenAI,
			TextInstruction:   defaultTextInstruction,
			ImageInstruction:  defaultImageInstruction,
			MaxCandidates:     defaultMaxCandidates,
			MaxImageBytes:     defaultMaxImageBytes,
			MaxAudioBytes:     defaultMaxAudioBytes,
			AllowedAudioTypes: append([]string(nil), defaultAudioTypes...),
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			MaxAttempts:    defaultLLMMaxAttempts,
			MaxTokensText:  defaultLLMMaxTokensText,
			MaxTokensImage: defaultLLMMaxTokensImage,
		},
		Gemini: Gemini{
			Model: defaultGeminiModel,
		},
		Transcription: Transcription{
			BaseURL:        defaultTranscriptionBaseURL,
			Model:          defaultTranscriptionModel,
			TimeoutSeconds: defaultTranscriptionTimeout,
		},
		Server: Server{
			Bind:          defaultServerBind,
			TokenTTLHours: defaultTokenTTLHours,
			LockPath:      defaultLockPath,
			MaxUploadMB:   defaultMaxUploadMB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			Dir:    defaultLogDir,
		},
	}
}
