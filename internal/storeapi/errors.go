package storeapi

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Kind classifies a failed API call. Every failure leaving this package is an
// *Error carrying exactly one Kind; callers branch on it instead of poking at
// transport details.
type Kind int

const (
	// KindTransport covers failures with no HTTP response: connection
	// refused, timeout, cancelled context.
	KindTransport Kind = iota + 1
	// KindClient covers 4xx responses.
	KindClient
	// KindServer covers 5xx responses.
	KindServer
	// KindDecode covers responses whose body did not match the contract.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// ErrUnauthorized is wrapped into 401/403 failures so callers can detect a
// missing or rejected credential with errors.Is.
var ErrUnauthorized = errors.New("unauthorized")

// Error is the uniform failure result of a store API call.
type Error struct {
	Op         string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("storeapi: %s: %s error (status %d): %v", e.Op, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("storeapi: %s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a store API error of the given kind.
func IsKind(err error, k Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == k
}
