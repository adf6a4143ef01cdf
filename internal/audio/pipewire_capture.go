package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/audiolibrelab/tunefinder/internal/config"
)

const (
	// startupGrace is how long pw-record must survive before the device
	// counts as opened.
	startupGrace = 150 * time.Millisecond
	stopTimeout  = 5 * time.Second
	readChunk    = 4096
)

// PipeWireCapture records from a PipeWire source with pw-record, streaming
// raw PCM over stdout.
type PipeWireCapture struct {
	Source     string
	SampleRate int
	Channels   int

	command  string
	pipewire *PipeWire

	mutex  sync.Mutex
	status Status
}

// NewPipeWireCapture creates a capture from the audio configuration
func NewPipeWireCapture(cfg config.AudioConfig) *PipeWireCapture {
	rate, channels := cfg.SampleRate, cfg.Channels
	if rate == 0 {
		rate = 44100
	}
	if channels == 0 {
		channels = 1
	}
	return &PipeWireCapture{
		Source:     cfg.Source,
		SampleRate: rate,
		Channels:   channels,
		command:    "pw-record",
		pipewire:   NewPipeWire(),
		status:     StatusStandby,
	}
}

// Status returns the device state
func (c *PipeWireCapture) Status() Status {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.status
}

func (c *PipeWireCapture) args() []string {
	args := []string{
		"--rate", strconv.Itoa(c.SampleRate),
		"--channels", strconv.Itoa(c.Channels),
		"--format", "s16",
	}
	if c.Source != "" {
		args = append(args, "--target", c.Source)
	}
	return append(args, "-")
}

// Start launches pw-record. Any failure to open the device is reported as
// ErrAccessDenied.
func (c *PipeWireCapture) Start(ctx context.Context) (Recording, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.status == StatusRecording {
		return nil, ErrBusy
	}

	if c.Source != "" && c.pipewire != nil {
		if err := c.pipewire.ValidatePort(ctx, c.Source); err != nil {
			c.status = StatusError
			return nil, fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
	}

	path, err := exec.LookPath(c.command)
	if err != nil {
		c.status = StatusError
		return nil, fmt.Errorf("%w: %s not found: %v", ErrAccessDenied, c.command, err)
	}

	cmd := exec.Command(path, c.args()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	rec := &pipeWireRecording{
		capture: c,
		cmd:     cmd,
		format:  [2]int{c.SampleRate, c.Channels},
		done:    make(chan struct{}),
	}
	cmd.Stderr = &rec.stderr

	slog.Debug("Starting pw-record", "command", path+" "+strings.Join(c.args(), " "))
	if err := cmd.Start(); err != nil {
		c.status = StatusError
		return nil, fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}

	go rec.readLoop(stdout)

	select {
	case <-rec.done:
		c.status = StatusError
		msg := strings.TrimSpace(rec.stderr.String())
		return nil, fmt.Errorf("%w: pw-record exited: %v %s", ErrAccessDenied, rec.waitErr, msg)
	case <-ctx.Done():
		rec.kill()
		c.status = StatusStandby
		return nil, ctx.Err()
	case <-time.After(startupGrace):
	}

	c.status = StatusRecording
	slog.Info("Audio capture started", "source", c.sourceName(), "rate", c.SampleRate, "channels", c.Channels)
	return rec, nil
}

func (c *PipeWireCapture) sourceName() string {
	if c.Source == "" {
		return "default"
	}
	return c.Source
}

func (c *PipeWireCapture) release(status Status) {
	c.mutex.Lock()
	c.status = status
	c.mutex.Unlock()
}

type pipeWireRecording struct {
	capture *PipeWireCapture
	cmd     *exec.Cmd
	format  [2]int
	stderr  bytes.Buffer

	mu    sync.Mutex
	pcm   bytes.Buffer
	level float64

	done    chan struct{}
	waitErr error

	stopOnce sync.Once
	result   []byte
	stopErr  error
}

// readLoop accumulates PCM until pw-record closes stdout, then reaps it
func (r *pipeWireRecording) readLoop(stdout io.ReadCloser) {
	defer close(r.done)

	chunk := make([]byte, readChunk)
	for {
		n, err := stdout.Read(chunk)
		if n > 0 {
			r.mu.Lock()
			r.pcm.Write(chunk[:n])
			r.level = levelOf(chunk[:n])
			r.mu.Unlock()
		}
		if err != nil {
			break
		}
	}
	r.waitErr = r.cmd.Wait()
}

func (r *pipeWireRecording) Level() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level
}

// Stop interrupts pw-record, waits for it to flush and encodes the audio
func (r *pipeWireRecording) Stop() ([]byte, error) {
	r.stopOnce.Do(func() {
		r.stopErr = r.interrupt()
		if r.stopErr != nil {
			r.capture.release(StatusError)
			return
		}
		r.capture.release(StatusStandby)

		r.mu.Lock()
		pcm := r.pcm.Bytes()
		r.mu.Unlock()

		if len(pcm) == 0 {
			r.stopErr = ErrNoAudio
			return
		}

		r.result, r.stopErr = EncodeWAV(pcm, r.format[0], r.format[1])
		slog.Debug("Audio capture stopped", "pcm_bytes", len(pcm), "wav_bytes", len(r.result))
	})
	return r.result, r.stopErr
}

// Abort kills pw-record and discards the audio
func (r *pipeWireRecording) Abort() error {
	r.stopOnce.Do(func() {
		r.kill()
		r.capture.release(StatusStandby)
		r.stopErr = errors.New("capture aborted")
		slog.Debug("Audio capture aborted")
	})
	return nil
}

func (r *pipeWireRecording) interrupt() error {
	if r.cmd.Process != nil {
		slog.Debug("Sending SIGINT to pw-record")
		if err := r.cmd.Process.Signal(os.Interrupt); err != nil {
			slog.Debug("Failed to send interrupt to pw-record", "error", err)
		}
	}

	select {
	case <-r.done:
	case <-time.After(stopTimeout):
		slog.Warn("pw-record did not exit within timeout, force killing")
		r.kill()
		return nil
	}

	if r.waitErr != nil && !exitedBySignal(r.waitErr) {
		slog.Debug("pw-record stderr", "output", r.stderr.String())
		return fmt.Errorf("pw-record failed: %w", r.waitErr)
	}
	return nil
}

func (r *pipeWireRecording) kill() {
	if r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
	<-r.done
}

// exitedBySignal reports whether err is the normal result of the interrupt
// sent by Stop
func exitedBySignal(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	if exitErr.ExitCode() == 255 || exitErr.ExitCode() == 130 {
		return true
	}
	if exitErr.ProcessState != nil {
		state := exitErr.ProcessState.String()
		return state == "signal: interrupt" || state == "signal: killed"
	}
	return false
}
