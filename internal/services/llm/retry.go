package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
)

func (c *Client) retryAttempts() int {
	return max(c.retryMaxAttempts, 1)
}

// transient reports whether err is worth another request. hint is the
// server-requested wait from Retry-After, zero when absent.
func transient(err error) (hint time.Duration, ok bool) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	var empty *emptyContentError
	if errors.As(err, &empty) {
		return 0, true
	}
	var status *httpStatusError
	if errors.As(err, &status) {
		code := status.StatusCode
		if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError {
			return status.RetryAfter, true
		}
		return 0, false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return 0, netErr.Timeout()
	}
	return 0, false
}

// retryDelay returns the wait before the next attempt, or false when the
// caller should give up with err.
func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if err == nil || attempt >= maxAttempts || ctx.Err() != nil {
		return 0, false
	}
	hint, ok := transient(err)
	if !ok {
		return 0, false
	}
	if hint > 0 {
		return min(hint, c.maxDelay()), true
	}
	return c.backoffDelay(attempt), true
}

// backoffDelay is base << (attempt-1), capped at the max delay.
func (c *Client) backoffDelay(attempt int) time.Duration {
	if c.retryBaseDelay <= 0 {
		return 0
	}
	ceiling := c.maxDelay()
	delay := c.retryBaseDelay
	for range attempt - 1 {
		if delay >= ceiling {
			break
		}
		delay <<= 1
	}
	return min(delay, ceiling)
}

func (c *Client) maxDelay() time.Duration {
	if c.retryMaxDelay <= 0 {
		return defaultRetryMaxDelay
	}
	return c.retryMaxDelay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if err := ctx.Err(); err != nil || delay <= 0 {
		return err
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(header string) (time.Duration, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second, secs >= 0
	}
	when, err := http.ParseTime(header)
	if err != nil {
		return 0, false
	}
	delay := time.Until(when)
	return delay, delay > 0
}
