package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"shelfmark/internal/logging"
)

// Lock contention is retried with doubling backoff. Anything else, including
// a cancelled context, returns immediately.
const (
	lockRetryAttempts = 5
	lockRetryBackoff  = 10 * time.Millisecond
	lockRetryCeiling  = 200 * time.Millisecond

	sqliteBusy   = 5
	sqliteLocked = 6

	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// isLockContention reports whether err is a transient lock conflict: SQLite
// BUSY/LOCKED (extended codes included) or a MySQL deadlock or lock wait
// timeout.
func isLockContention(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDeadlock || myErr.Number == mysqlLockWaitTimeout
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		switch coder.Code() & 0xff {
		case sqliteBusy, sqliteLocked:
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (d *DB) withLockRetry(ctx context.Context, op func() error) error {
	backoff := lockRetryBackoff
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil || attempt == lockRetryAttempts || !isLockContention(err) {
			return err
		}
		d.logger.Debug("lock contention, retrying",
			logging.Int("attempt", attempt),
			logging.Duration("backoff", backoff),
		)
		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		backoff = min(backoff*2, lockRetryCeiling)
	}
}

// Exec runs a statement on the pool, retrying on lock contention.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var res sql.Result
	err := d.withLockRetry(ctx, func() error {
		var execErr error
		res, execErr = d.db.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// InTx runs fn inside a transaction. fn must use the supplied tx for every
// statement. The whole transaction is retried on lock contention, so fn must
// not have side effects outside the database.
func (d *DB) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	ctx = ensureContext(ctx)
	return d.withLockRetry(ctx, func() error {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}
