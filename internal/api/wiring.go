package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/api/option"

	"shelfmark/internal/config"
	"shelfmark/internal/extraction"
	"shelfmark/internal/logging"
	"shelfmark/internal/metadata"
	"shelfmark/internal/metadata/googlebooks"
	"shelfmark/internal/metadata/openlibrary"
	"shelfmark/internal/services/gemini"
	"shelfmark/internal/services/llm"
	"shelfmark/internal/services/transcribe"
)

// BuildProviders constructs the enabled bibliographic providers in the
// configured order. Unknown names are rejected by config validation; a
// provider that fails to build is logged and left out.
func BuildProviders(cfg *config.Config, logger *slog.Logger) []metadata.Provider {
	httpClient := &http.Client{Timeout: cfg.MetadataTimeout()}
	providers := make([]metadata.Provider, 0, len(cfg.Metadata.Providers))
	for _, name := range cfg.Metadata.Providers {
		var (
			provider metadata.Provider
			err      error
		)
		switch name {
		case config.ProviderOpenLibrary:
			provider, err = openlibrary.New(cfg.Metadata.OpenLibraryBaseURL, cfg.Metadata.UserAgent,
				openlibrary.WithHTTPClient(httpClient))
		case config.ProviderGoogleBooks:
			provider, err = googlebooks.New(cfg.Metadata.GoogleBooksBaseURL, cfg.Metadata.UserAgent,
				googlebooks.WithHTTPClient(httpClient),
				googlebooks.WithAPIKey(cfg.Metadata.GoogleBooksAPIKey))
		default:
			err = fmt.Errorf("unknown provider %q", name)
		}
		if err != nil {
			logging.WarnWithContext(logger, "metadata provider disabled", "metadata_provider_invalid",
				logging.String(logging.FieldProvider, name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the [metadata] base URLs"),
				logging.String(logging.FieldImpact, "lookups skip this provider"),
			)
			continue
		}
		providers = append(providers, provider)
	}
	return providers
}

// BuildModel constructs the configured extraction model. It returns an error
// when the provider's credentials are missing.
func BuildModel(cfg *config.Config, opts ...option.ClientOption) (extraction.Model, error) {
	if err := cfg.ValidateExtractionCredentials(); err != nil {
		return nil, err
	}
	switch cfg.Extraction.Provider {
	case config.ExtractionGemini:
		client, err := gemini.New(gemini.Config{
			APIKey:         cfg.Gemini.APIKey,
			Model:          cfg.Gemini.Model,
			MaxTokensText:  cfg.LLM.MaxTokensText,
			MaxTokensImage: cfg.LLM.MaxTokensImage,
		}, opts...)
		if err != nil {
			return nil, err
		}
		return extraction.GeminiModel{Client: client}, nil
	default:
		client := llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
			MaxTokensText:  cfg.LLM.MaxTokensText,
			MaxTokensImage: cfg.LLM.MaxTokensImage,
		}, llm.WithRetryMaxAttempts(cfg.LLM.MaxAttempts))
		return extraction.OpenAIModel{Client: client}, nil
	}
}

// BuildTranscriber constructs the speech-to-text client.
func BuildTranscriber(cfg *config.Config) (extraction.Transcriber, error) {
	settings := cfg.TranscriptionSettings()
	return transcribe.New(transcribe.Config{
		APIKey:         settings.APIKey,
		BaseURL:        settings.BaseURL,
		Model:          settings.Model,
		TimeoutSeconds: settings.TimeoutSeconds,
	})
}
