// Package gemini extracts book mentions through Google Gemini, as an
// alternative to the OpenAI-compatible llm client. Requests use JSON output
// constrained by a books schema equivalent to the chat client's books_list.
package gemini
