package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrExternalTool  = errors.New("upstream error")
	ErrNotReady      = errors.New("catalog not ready")
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
	ErrTimeout       = errors.New("timeout")
	ErrConfiguration = errors.New("configuration error")
)

// Kind names reported to API callers. They are stable identifiers, unlike the
// error text.
const (
	KindInput         = "input"
	KindUpstream      = "upstream"
	KindNotReady      = "not_ready"
	KindNotFound      = "not_found"
	KindForbidden     = "forbidden"
	KindConflict      = "conflict"
	KindTimeout       = "timeout"
	KindConfiguration = "configuration"
	KindInternal      = "internal"
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// UpstreamMarker picks ErrTimeout for timeouts and ErrExternalTool otherwise.
func UpstreamMarker(err error) error {
	if IsTimeout(err) {
		return ErrTimeout
	}
	return ErrExternalTool
}

// Kind classifies err into one of the Kind* names. Timeouts win over the
// upstream marker so callers can distinguish a slow provider from a broken one.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindInput
	case errors.Is(err, ErrNotReady):
		return KindNotReady
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrExternalTool):
		return KindUpstream
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindInternal
	}
}

// PublicMessage returns the text shown to API callers. Input, not-ready, and
// ownership problems are always described; upstream and internal failures get a
// generic message unless debug is enabled.
func PublicMessage(err error, debug bool) string {
	if err == nil {
		return ""
	}
	if debug {
		return err.Error()
	}
	switch Kind(err) {
	case KindInput, KindNotFound, KindForbidden, KindConflict:
		return err.Error()
	case KindNotReady:
		return "the book catalog is not available; make sure the catalog tables are installed"
	case KindUpstream, KindTimeout:
		return "the extraction or metadata service failed; please try again"
	case KindConfiguration:
		return "the service is not configured for this operation"
	default:
		return "internal error"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
