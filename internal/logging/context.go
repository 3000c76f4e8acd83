package logging

import (
	"context"
	"log/slog"

	"shelfmark/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldUserID identifies the library owner a request acts for.
	FieldUserID = "user_id"
	// FieldRowID identifies a pending confirmation row.
	FieldRowID = "row_id"
	// FieldBookID identifies a canonical catalog row.
	FieldBookID = "book_id"
	// FieldFingerprint carries the title/author identity hash.
	FieldFingerprint = "fingerprint"
	// FieldOperation names the outbound operation being served (ingest, confirm, ...).
	FieldOperation = "operation"
	// FieldProvider names an external bibliographic or model provider.
	FieldProvider = "provider"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies warnings and errors for later filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldMatchMethod names the catalog matcher tier (hash, normalized_like, raw_like).
	FieldMatchMethod = "match_method"
	// FieldScore is a 0-100 similarity.
	FieldScore = "score"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.UserIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldUserID, id))
	}
	if id, ok := services.RowIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldRowID, id))
	}
	if op, ok := services.OperationFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldOperation, op))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
