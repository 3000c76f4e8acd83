package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"shelfmark/internal/api"
	"shelfmark/internal/config"
	"shelfmark/internal/database"
	"shelfmark/internal/logging"
	"shelfmark/internal/services"
)

// Daemon owns the HTTP server and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *database.DB
	svc    *api.Service
	server *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool   `json:"running"`
	PID           int    `json:"pid"`
	Address       string `json:"address,omitempty"`
	Database      string `json:"database"`
	LockFilePath  string `json:"lock_file_path"`
	CatalogReady  bool   `json:"catalog_ready"`
	CatalogDetail string `json:"catalog_detail,omitempty"`
}

// New constructs a daemon around an open database. opts are forwarded to
// api.New.
func New(cfg *config.Config, db *database.DB, logger *slog.Logger, opts ...api.Option) (*Daemon, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("daemon requires config and database")
	}
	if err := cfg.ValidateServer(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "daemon", "init", "server settings", err)
	}
	logger = logging.NewComponentLogger(logger, "daemon")
	svc := api.New(cfg, db, logger, opts...)
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		svc:      svc,
		server:   newAPIServer(cfg, svc, logger),
		lockPath: cfg.Server.LockPath,
		lock:     flock.New(cfg.Server.LockPath),
	}, nil
}

// Start acquires the instance lock and starts serving.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another shelfmark server instance is already running")
	}

	if err := d.svc.Ready(ctx); err != nil {
		logging.WarnWithContext(d.logger, "catalog tables missing", "catalog_not_ready",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run 'shelfmark catalog init' or point table_prefix at the catalog owner"),
			logging.String(logging.FieldImpact, "ingest and confirm requests will fail until the catalog exists"),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.server.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("shelfmark server started",
		logging.String("lock", d.lockPath),
		logging.String("database", d.db.Address()),
	)
	return nil
}

// Stop stops serving and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release server lock", "lock_release_failed", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("shelfmark server stopped")
}

// Close stops the daemon and closes the database.
func (d *Daemon) Close() error {
	d.Stop()
	return d.db.Close()
}

// Address returns the bound listen address while running.
func (d *Daemon) Address() string {
	return d.server.address()
}

// Service exposes the wired api.Service.
func (d *Daemon) Service() *api.Service {
	return d.svc
}

// Status reports runtime information, including catalog readiness.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Address:      d.Address(),
		Database:     d.db.Address(),
		LockFilePath: d.lockPath,
	}
	if err := d.svc.Ready(ctx); err != nil {
		status.CatalogDetail = services.PublicMessage(err, d.cfg.Debug)
	} else {
		status.CatalogReady = true
	}
	return status
}
