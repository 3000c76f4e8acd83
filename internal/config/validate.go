package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var tablePrefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateMetadata(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return errors.New("database.path must be set when database.driver is sqlite")
		}
	case DriverMySQL:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required when database.driver is mysql. Set SHELFMARK_DATABASE_DSN or edit the config file")
		}
	default:
		return fmt.Errorf("database.driver: unsupported value %q (want sqlite or mysql)", c.Database.Driver)
	}
	if !tablePrefixPattern.MatchString(c.Database.TablePrefix) {
		return fmt.Errorf("database.table_prefix %q may only contain letters, digits, and underscores", c.Database.TablePrefix)
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.CatalogMinScore > 100 {
		return errors.New("matching.catalog_min_score must be between 0 and 100")
	}
	if c.Matching.ShelfFuzzyThreshold > 1 {
		return errors.New("matching.shelf_fuzzy_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateMetadata() error {
	if len(c.Metadata.Providers) == 0 {
		return errors.New("metadata.providers must list at least one provider")
	}
	for _, name := range c.Metadata.Providers {
		switch name {
		case ProviderOpenLibrary, ProviderGoogleBooks:
		default:
			return fmt.Errorf("metadata.providers: unknown provider %q", name)
		}
	}
	if c.Metadata.MinScore > 100 {
		return errors.New("metadata.min_score must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateExtraction() error {
	switch c.Extraction.Provider {
	case ExtractionOpenAI, ExtractionGemini:
	default:
		return fmt.Errorf("extraction.provider: unsupported value %q (want openai or gemini)", c.Extraction.Provider)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

// ValidateExtractionCredentials reports whether the configured extraction
// provider has the credentials it needs. It is checked lazily because most
// commands never call a model.
func (c *Config) ValidateExtractionCredentials() error {
	switch c.Extraction.Provider {
	case ExtractionGemini:
		if c.Gemini.APIKey == "" {
			return errors.New("gemini.api_key is required when extraction.provider is gemini. Set GEMINI_API_KEY or edit the config file")
		}
	default:
		if c.LLM.APIKey == "" {
			return errors.New("llm.api_key is required for extraction. Set OPENAI_API_KEY or edit the config file")
		}
	}
	return nil
}

// ValidateServer ensures the HTTP API can authenticate callers.
func (c *Config) ValidateServer() error {
	if c.Server.JWTSecret == "" {
		return errors.New("server.jwt_secret is required. Set SHELFMARK_JWT_SECRET or edit the config file (create with 'shelfmark config init')")
	}
	if len(c.Server.JWTSecret) < 16 {
		return errors.New("server.jwt_secret must be at least 16 characters")
	}
	return nil
}
