package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"shelfmark/internal/config"
	"shelfmark/internal/logging"
)

// Tables holds the fully prefixed table names.
type Tables struct {
	Books         string
	UserBooks     string
	Pending       string
	SchemaVersion string
}

func newTables(prefix string) Tables {
	return Tables{
		Books:         prefix + "books",
		UserBooks:     prefix + "user_books",
		Pending:       prefix + "book_confirm",
		SchemaVersion: prefix + "shelfmark_schema",
	}
}

// Querier is satisfied by both *sql.DB and *sql.Tx so store code can run the
// same statements inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps the connection pool with its dialect and table names.
type DB struct {
	db      *sql.DB
	driver  string
	prefix  string
	tables  Tables
	logger  *slog.Logger
	address string
}

// Open connects to the configured store and initializes the queue schema.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("open database: config is nil")
	}
	ctx = ensureContext(ctx)
	logger = logging.NewComponentLogger(logger, "database")

	var (
		db      *sql.DB
		address string
		err     error
	)
	switch cfg.Database.Driver {
	case config.DriverMySQL:
		db, address, err = openMySQL(cfg.Database)
	case config.DriverSQLite, "":
		db, address, err = openSQLite(cfg.Database)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, err
	}

	store := &DB{
		db:      db,
		driver:  cfg.Database.Driver,
		prefix:  cfg.Database.TablePrefix,
		tables:  newTables(cfg.Database.TablePrefix),
		logger:  logger,
		address: address,
	}
	if store.driver == "" {
		store.driver = config.DriverSQLite
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", store.driver, err)
	}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Debug("database opened",
		logging.String("driver", store.driver),
		logging.String("address", address),
		logging.String("table_prefix", store.prefix),
	)
	return store, nil
}

func openSQLite(cfg config.Database) (*sql.DB, string, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, "", fmt.Errorf("create database directory: %w", err)
	}
	busyTimeout := cfg.BusyTimeoutMS
	if busyTimeout <= 0 {
		busyTimeout = 5000
	}
	// Pragmas travel in the DSN so every pooled connection gets them.
	params := url.Values{}
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout("+strconv.Itoa(busyTimeout)+")")
	dsn := "file:" + cfg.Path + "?" + params.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, "", fmt.Errorf("open sqlite db: %w", err)
	}
	return db, cfg.Path, nil
}

func openMySQL(cfg config.Database) (*sql.DB, string, error) {
	parsed, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	if parsed.Params == nil {
		parsed.Params = map[string]string{}
	}
	if _, ok := parsed.Params["charset"]; !ok {
		parsed.Params["charset"] = "utf8mb4"
	}
	connector, err := mysql.NewConnector(parsed)
	if err != nil {
		return nil, "", fmt.Errorf("create mysql connector: %w", err)
	}
	return sql.OpenDB(connector), parsed.Addr + "/" + parsed.DBName, nil
}

// Close closes the underlying connection pool.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Conn exposes the pool as a Querier for statements outside a transaction.
func (d *DB) Conn() Querier { return d.db }

// Tables returns the prefixed table names.
func (d *DB) Tables() Tables { return d.tables }

// Driver reports the configured dialect (sqlite or mysql).
func (d *DB) Driver() string { return d.driver }

// Address describes where the store lives, for status output.
func (d *DB) Address() string { return d.address }
