package audio

import (
	"context"
	"errors"
)

var (
	// ErrAccessDenied means the capture device could not be opened.
	ErrAccessDenied = errors.New("audio capture unavailable")
	// ErrBusy is returned when a capture is already running.
	ErrBusy = errors.New("capture already in progress")
	// ErrNoAudio is returned by Stop when nothing was captured.
	ErrNoAudio = errors.New("no audio captured")
)

// Status represents the current state of a capture device
type Status string

const (
	StatusStandby   Status = "STANDBY"
	StatusRecording Status = "RECORDING"
	StatusError     Status = "ERROR"
)

// Capture opens the input device. Only one Recording may be live at a time.
type Capture interface {
	Start(ctx context.Context) (Recording, error)
}

// Recording is a live capture session.
type Recording interface {
	// Level is the most recent input level between 0 and 1.
	Level() float64
	// Stop ends the capture, releases the device and returns a WAV blob.
	Stop() ([]byte, error)
	// Abort releases the device and discards the audio.
	Abort() error
}
