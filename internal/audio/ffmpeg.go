package audio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/audiolibrelab/tunefinder/internal/config"
)

// Trimmer cuts a window out of any audio file ffmpeg can read and
// re-encodes it as a WAV clip in the capture format
type Trimmer struct {
	SampleRate int
	Channels   int

	command string
}

func NewTrimmer(cfg config.AudioConfig) *Trimmer {
	return &Trimmer{
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
		command:    "ffmpeg",
	}
}

// Available reports whether the ffmpeg binary is on PATH
func (t *Trimmer) Available() bool {
	_, err := exec.LookPath(t.command)
	return err == nil
}

func (t *Trimmer) args(path string, offset, length time.Duration) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if offset > 0 {
		args = append(args, "-ss", seconds(offset))
	}
	args = append(args, "-i", path)
	if length > 0 {
		args = append(args, "-t", seconds(length))
	}
	return append(args,
		"-ac", strconv.Itoa(t.Channels),
		"-ar", strconv.Itoa(t.SampleRate),
		"-f", "wav",
		"-",
	)
}

// Trim returns length of audio starting at offset. A zero length keeps
// everything after offset.
func (t *Trimmer) Trim(ctx context.Context, path string, offset, length time.Duration) ([]byte, error) {
	cmd := exec.CommandContext(ctx, t.command, t.args(path, offset, length)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Running FFmpeg for trimming", "command", strings.Join(cmd.Args, " "))

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("FFmpeg trimming failed: %w\nOutput: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("FFmpeg produced no audio for %s", path)
	}
	return stdout.Bytes(), nil
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
