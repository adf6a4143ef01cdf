package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// FileCapture plays a pre-recorded file as the input device. Without a
// trimmer the file is returned unchanged by Stop, so any format the
// recognition service accepts can be used.
type FileCapture struct {
	Path string

	trimmer *Trimmer
	offset  time.Duration
	length  time.Duration

	mu   sync.Mutex
	busy bool
}

// FileOption configures a FileCapture.
type FileOption func(*FileCapture)

// WithTrim cuts length of audio starting at offset out of the file when
// ffmpeg is available. The whole file is used otherwise.
func WithTrim(t *Trimmer, offset, length time.Duration) FileOption {
	return func(c *FileCapture) {
		c.trimmer = t
		c.offset = offset
		c.length = length
	}
}

func NewFileCapture(path string, opts ...FileOption) *FileCapture {
	c := &FileCapture{Path: path}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *FileCapture) Start(ctx context.Context) (Recording, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return nil, ErrBusy
	}

	if _, err := os.Stat(c.Path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}

	data, err := c.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrAccessDenied, c.Path)
	}

	c.busy = true
	return &fileRecording{capture: c, data: data, level: levelOf(data[min(len(data), 44):])}, nil
}

func (c *FileCapture) read(ctx context.Context) ([]byte, error) {
	if c.trimmer != nil && (c.offset > 0 || c.length > 0) {
		if c.trimmer.Available() {
			data, err := c.trimmer.Trim(ctx, c.Path, c.offset, c.length)
			if err == nil {
				return data, nil
			}
			slog.Warn("Trimming failed, sending the whole file", "path", c.Path, "error", err)
		} else {
			slog.Debug("ffmpeg not found, sending the whole file", "path", c.Path)
		}
	}
	return os.ReadFile(c.Path)
}

type fileRecording struct {
	capture *FileCapture
	data    []byte
	level   float64
	once    sync.Once
}

func (r *fileRecording) Level() float64 { return r.level }

func (r *fileRecording) Stop() ([]byte, error) {
	r.release()
	return r.data, nil
}

func (r *fileRecording) Abort() error {
	r.release()
	return nil
}

func (r *fileRecording) release() {
	r.once.Do(func() {
		r.capture.mu.Lock()
		r.capture.busy = false
		r.capture.mu.Unlock()
	})
}
