package chroma

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure talking to the vector store.
type Kind int

const (
	// KindUpstream is a non-success status the negotiator could not route around.
	KindUpstream Kind = iota + 1
	// KindTimeout is a request that exceeded its deadline.
	KindTimeout
	// KindValidation is a response that did not have the expected shape.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindUpstream:
		return "UpstreamFailure"
	case KindTimeout:
		return "UpstreamTimeout"
	case KindValidation:
		return "ValidationFailure"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is against an *Error of the matching kind.
var (
	ErrUpstream   = errors.New("upstream failure")
	ErrTimeout    = errors.New("upstream timeout")
	ErrValidation = errors.New("malformed upstream response")
)

// Error is returned by every Client operation that reached the network.
type Error struct {
	Kind   Kind
	Op     string
	Shape  Shape
	Status int    // HTTP status, 0 when no response was received
	Body   string // truncated response body
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("chroma %s", e.Op)
	if e.Shape != ShapeUnset {
		msg += fmt.Sprintf(" [%s]", e.Shape)
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
		if e.Body != "" {
			msg += ": " + e.Body
		}
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUpstream:
		return e.Kind == KindUpstream
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrValidation:
		return e.Kind == KindValidation
	}
	return false
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// IsShapeMismatch reports whether err means the server does not understand the
// path convention used (404 or 405).
func IsShapeMismatch(err error) bool {
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindUpstream {
		return false
	}
	return e.Status == http.StatusNotFound || e.Status == http.StatusMethodNotAllowed
}

// IsConflict reports whether err is a 409 from the server.
func IsConflict(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindUpstream && e.Status == http.StatusConflict
}

func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
