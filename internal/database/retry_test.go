package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"

	"shelfmark/internal/logging"
)

type codedError int

func (e codedError) Error() string { return fmt.Sprintf("sqlite error %d", int(e)) }
func (e codedError) Code() int     { return int(e) }

func TestIsLockContention(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"mysql deadlock", &mysql.MySQLError{Number: 1213}, true},
		{"mysql lock wait", fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1205}), true},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, false},
		{"sqlite busy extended", codedError(5 | 2<<8), true},
		{"sqlite constraint", codedError(19), false},
		{"locked message", errors.New("database is locked"), true},
		{"other", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := isLockContention(tc.err); got != tc.want {
			t.Errorf("%s: isLockContention = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestWithLockRetryGivesUpAfterAttempts(t *testing.T) {
	d := &DB{logger: logging.NewNop()}
	calls := 0
	err := d.withLockRetry(context.Background(), func() error {
		calls++
		return &mysql.MySQLError{Number: 1213}
	})
	if err == nil || calls != lockRetryAttempts {
		t.Fatalf("calls = %d err = %v", calls, err)
	}

	calls = 0
	err = d.withLockRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("calls = %d err = %v", calls, err)
	}
}

func TestWithLockRetryStopsOnCancel(t *testing.T) {
	d := &DB{logger: logging.NewNop()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := d.withLockRetry(ctx, func() error { return errors.New("database is locked") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
