// Package llm provides an OpenAI-compatible chat client that extracts book
// mentions from text or images.
//
// # Structured Output
//
// Every extraction request pins temperature to 0 and sends a strict
// json_schema response format named books_list, so a conforming model answers
// with {"books":[{"title":"...","author":"..."}]} and nothing else.
// DecodeLLMJSON still tolerates code fences and surrounding prose for models
// that ignore the schema.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.ExtractText: send a fully assembled text prompt.
// Client.ExtractImage: send an instruction plus an image URL or data URL.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// A single attempt is made by default. WithRetryMaxAttempts enables retries on
// HTTP 408/429/5xx, empty completions, and network timeouts with exponential
// backoff (base 1s, max 10s). Retry-After is honoured when present. Context
// cancellation aborts retries immediately.
package llm
