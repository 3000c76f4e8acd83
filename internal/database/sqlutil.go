package database

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

// LikeEscape is the escape character used with EscapeLike patterns.
const LikeEscape = "!"

var likeReplacer = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// EscapeLike escapes LIKE wildcards so value matches literally. Statements must
// declare ESCAPE '!'.
func EscapeLike(value string) string {
	return likeReplacer.Replace(value)
}

// ContainsPattern returns a LIKE pattern matching any value containing value.
func ContainsPattern(value string) string {
	return "%" + EscapeLike(value) + "%"
}

// NullableString maps "" to NULL.
func NullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// NullableInt maps nil to NULL.
func NullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

// NullableInt64 maps nil to NULL.
func NullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

// NullableFloat maps nil to NULL.
func NullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

// IntPtr converts a nullable column, treating NULL and non-positive values as absent.
func IntPtr(value sql.NullInt64) *int {
	if !value.Valid || value.Int64 <= 0 {
		return nil
	}
	v := int(value.Int64)
	return &v
}

// Int64Ptr converts a nullable id column.
func Int64Ptr(value sql.NullInt64) *int64 {
	if !value.Valid {
		return nil
	}
	v := value.Int64
	return &v
}

// FloatPtr converts a nullable real column.
func FloatPtr(value sql.NullFloat64) *float64 {
	if !value.Valid {
		return nil
	}
	v := value.Float64
	return &v
}

// FormatTime renders timestamps the way every table stores them.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Now returns the current timestamp in storage format.
func Now() string {
	return FormatTime(time.Now())
}

// ParseTime reads a stored timestamp, accepting the SQL datetime layout used by
// rows written outside shelfmark.
func ParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
