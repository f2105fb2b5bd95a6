package upstream

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRange is returned for a negative skip or a non-positive limit.
	ErrInvalidRange = errors.New("invalid page range")

	// ErrUnexpectedStatus is returned for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrMalformedBody is returned when the payload lacks items or total.
	ErrMalformedBody = errors.New("malformed response body")
)

// Error describes a failed page fetch.
type Error struct {
	Op         string
	Skip       int
	Limit      int
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "upstream %s (skip=%d limit=%d)", e.Op, e.Skip, e.Limit)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " status %d", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsUpstreamError reports whether err wraps an *Error.
func IsUpstreamError(err error) bool {
	var ue *Error
	return errors.As(err, &ue)
}
