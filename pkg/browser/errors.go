package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind categorizes browsing failures.
type ErrorKind string

const (
	KindTimeout    ErrorKind = "timeout"
	KindNavigation ErrorKind = "navigation"
	KindQuery      ErrorKind = "query"
	KindClosed     ErrorKind = "closed"
)

// Error is a browsing failure tagged with its kind.
type Error struct {
	Kind ErrorKind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or "" when err is not a browsing failure.
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// IsTimeout reports whether err is a timeout-kind failure.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}

// classify wraps err, promoting deadline errors to KindTimeout.
func classify(kind ErrorKind, url string, err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, URL: url, Err: err}
}
