// Package session drives one capture-then-recognize cycle at a time and
// publishes the resulting state to whatever presents it.
package session

import (
	"errors"
	"fmt"

	"github.com/audiolibrelab/tunefinder/internal/track"
)

// Phase is the step of the listen cycle.
type Phase string

const (
	Idle          Phase = "idle"
	Recording     Phase = "recording"
	Processing    Phase = "processing"
	ShowingResult Phase = "showing_result"
	ShowingError  Phase = "showing_error"
)

// ErrorKind classifies failures surfaced to the user.
type ErrorKind string

const (
	AccessDenied   ErrorKind = "access_denied"
	NoMatch        ErrorKind = "no_match"
	TransportError ErrorKind = "transport_error"
)

// Failure is the reason shown alongside ShowingError, or the last start
// failure.
type Failure struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// State is an immutable snapshot of the controller.
type State struct {
	Phase          Phase        `json:"phase"`
	CurrentTrack   *track.Track `json:"currentTrack,omitempty"`
	ElapsedSeconds int          `json:"elapsedSeconds"`
	Failure        *Failure     `json:"failure,omitempty"`
	Level          float64      `json:"level"`
	// Capturing is true while the device is open, even when a selected
	// history entry is shown instead of the Recording view.
	Capturing bool   `json:"capturing"`
	SessionID string `json:"sessionId,omitempty"`
	// Version increases with every published change.
	Version uint64 `json:"version"`
}

func (s State) clone() State {
	if s.CurrentTrack != nil {
		t := *s.CurrentTrack
		s.CurrentTrack = &t
	}
	if s.Failure != nil {
		f := *s.Failure
		s.Failure = &f
	}
	return s
}

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("session controller closed")

// Error is returned by Start and Stop when the capture device fails.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
