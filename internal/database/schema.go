package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"shelfmark/internal/config"
)

//go:embed schema/sqlite/*.sql schema/mysql/*.sql
var schemaFS embed.FS

// SchemaVersion is the current queue schema version. Bump it when
// schema/*/queue.sql changes; existing databases must then be migrated or
// cleared by hand.
const SchemaVersion = 1

func (d *DB) schemaStatements(name string) ([]string, error) {
	data, err := schemaFS.ReadFile("schema/" + d.driver + "/" + name + ".sql")
	if err != nil {
		return nil, fmt.Errorf("read %s schema: %w", name, err)
	}
	text := strings.ReplaceAll(string(data), "{{prefix}}", d.prefix)
	var statements []string
	for _, stmt := range strings.Split(text, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements, nil
}

func (d *DB) initSchema(ctx context.Context) error {
	exists, err := d.TableExists(ctx, d.tables.SchemaVersion)
	if err != nil {
		return fmt.Errorf("check schema version table: %w", err)
	}
	if !exists {
		return d.createQueueSchema(ctx)
	}

	var version int
	if err := d.db.QueryRowContext(ctx, "SELECT version FROM "+d.tables.SchemaVersion+" LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != SchemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (drop the %s table to rebuild the queue)",
			ErrSchemaMismatch, version, SchemaVersion, d.tables.Pending)
	}
	return nil
}

func (d *DB) createQueueSchema(ctx context.Context) error {
	statements, err := d.schemaStatements("queue")
	if err != nil {
		return err
	}
	err = d.InTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create queue schema: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO "+d.tables.SchemaVersion+" (version) VALUES (?)", SchemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	d.logger.Info("queue schema created", "version", SchemaVersion, "table", d.tables.Pending)
	return nil
}

// EnsureCatalogSchema creates the catalog and link tables when they are absent.
// Deployments that share the catalog with another application never call it.
func (d *DB) EnsureCatalogSchema(ctx context.Context) error {
	ctx = ensureContext(ctx)
	statements, err := d.schemaStatements("catalog")
	if err != nil {
		return err
	}
	for _, stmt := range statements {
		if _, err := d.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create catalog schema: %w", err)
		}
	}
	d.logger.Info("catalog schema ensured", "books", d.tables.Books, "links", d.tables.UserBooks)
	return nil
}

// TableExists reports whether a table is present in the connected database.
func (d *DB) TableExists(ctx context.Context, name string) (bool, error) {
	ctx = ensureContext(ctx)
	var query string
	switch d.driver {
	case config.DriverMySQL:
		query = "SELECT COUNT(1) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
	default:
		query = "SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name = ?"
	}
	var count int
	if err := d.db.QueryRowContext(ctx, query, name).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
