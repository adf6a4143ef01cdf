package recognize

import (
	"errors"
	"fmt"
)

// Kind classifies a recognition failure.
type Kind int

const (
	// NoMatch means the service answered but found no song.
	NoMatch Kind = iota + 1
	// TransportError covers network failures, non-2xx answers, service-level
	// errors and unreadable response bodies.
	TransportError
)

func (k Kind) String() string {
	switch k {
	case NoMatch:
		return "no_match"
	case TransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

var (
	ErrNoMatch   = errors.New("no match found")
	ErrTransport = errors.New("recognition transport error")
)

// Error is returned by Recognize for every failed attempt.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.sentinel().Error()
	}
	return fmt.Sprintf("%s: %v", e.sentinel(), e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.sentinel()}
	}
	return []error{e.sentinel(), e.Err}
}

func (e *Error) sentinel() error {
	if e.Kind == NoMatch {
		return ErrNoMatch
	}
	return ErrTransport
}

func noMatch(format string, args ...any) error {
	return &Error{Kind: NoMatch, Err: fmt.Errorf(format, args...)}
}

func transport(err error) error {
	return &Error{Kind: TransportError, Err: err}
}

// KindOf reports the failure kind of err, or 0 if err is not a recognition error.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}
