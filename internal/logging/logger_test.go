package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shelfmark/internal/config"
	"shelfmark/internal/logging"
	"shelfmark/internal/services"
)

func tempLogPath(t *testing.T) (string, func() string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "test.log")
	read := func() string {
		content, err := os.ReadFile(logPath)
		if err != nil {
			t.Fatalf("read log file: %v", err)
		}
		return string(content)
	}
	return logPath, read
}

func TestNewFromConfigConsole(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Dir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger instance")
	}
	logger.Info("hello")

	content, err := os.ReadFile(filepath.Join(cfg.Logging.Dir, "shelfmark.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath, read := tempLogPath(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")
	if got := read(); strings.Contains(got, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", got)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath, read := tempLogPath(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")
	if got := read(); !strings.Contains(got, "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", got)
	}
}

func TestConsoleLoggerRendersComponentAndSubject(t *testing.T) {
	logPath, read := tempLogPath(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithUserID(context.Background(), 7)
	ctx = services.WithRowID(ctx, 42)
	component := logging.NewComponentLogger(logger, "queue")
	logging.WithContext(ctx, component).Info("row merged", logging.String("field", "title"), logging.Any("year", (*int)(nil)))

	got := read()
	for _, want := range []string{"INFO", "queue: row merged", "[user 7 row #42]", "field=title", "year=null"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
}

func TestJSONLoggerRenamesKeys(t *testing.T) {
	logPath, read := tempLogPath(t)
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "provider failed", "metadata_provider_failed", logging.Error(errors.New("boom")))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(read())), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["msg"] != "provider failed" || entry["level"] != "warn" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key: %v", entry)
	}
	if entry[logging.FieldEventType] != "metadata_provider_failed" {
		t.Fatalf("expected event type, got %v", entry[logging.FieldEventType])
	}
	if entry[logging.FieldImpact] == nil || entry[logging.FieldErrorHint] == nil {
		t.Fatalf("expected injected impact and hint: %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestContextFields(t *testing.T) {
	ctx := services.WithRequestID(context.Background(), "req-1")
	ctx = services.WithOperation(ctx, "confirm")
	fields := logging.ContextFields(ctx)
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	if got := strings.Join(keys, ","); got != "operation,correlation_id" {
		t.Fatalf("unexpected context fields %q", got)
	}
}

func TestSecretsAreRedacted(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		t.Run(format, func(t *testing.T) {
			logPath, read := tempLogPath(t)
			logger, err := logging.New(logging.Options{Format: format, Level: "info", OutputPaths: []string{logPath}})
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			logger.Info("client configured", logging.String("api_key", "sk-live-123"), logging.Group("server", logging.String("jwt_secret", "hunter2hunter2hunter2")))
			got := read()
			if strings.Contains(got, "sk-live-123") || strings.Contains(got, "hunter2") {
				t.Fatalf("secret leaked into %q", got)
			}
			if !strings.Contains(got, "[redacted]") {
				t.Fatalf("expected redaction marker in %q", got)
			}
		})
	}
}

func TestMatchAttrsOmitsEmptyValues(t *testing.T) {
	attrs := logging.MatchAttrs("hash", 0, 0)
	if len(attrs) != 1 || attrs[0].Key != logging.FieldMatchMethod {
		t.Fatalf("unexpected attrs %v", attrs)
	}
	attrs = logging.MatchAttrs("normalized_like", 12, 81.5)
	if len(attrs) != 3 || !logging.HasAttrKey(attrs, logging.FieldBookID) || !logging.HasAttrKey(attrs, logging.FieldScore) {
		t.Fatalf("unexpected attrs %v", attrs)
	}
}
