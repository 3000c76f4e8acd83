package database

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrSchemaMismatch indicates the queue schema version differs from the one this
// build expects.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteConstraintUnique     = 2067
	sqliteConstraintPrimaryKey = 1555
	mysqlDuplicateEntry        = 1062
)

// IsUniqueViolation reports whether err was caused by a UNIQUE or primary key
// constraint. Callers treat it as "somebody else already wrote this row".
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		switch coder.Code() {
		case sqliteConstraintUnique, sqliteConstraintPrimaryKey:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
