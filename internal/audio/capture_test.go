package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/audiolibrelab/tunefinder/internal/config"
)

// fakeRecorder writes an executable script standing in for pw-record
func fakeRecorder(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "pw-record")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0755); err != nil {
		t.Fatalf("Failed to write fake recorder: %v", err)
	}
	return path
}

func newTestCapture(command string) *PipeWireCapture {
	c := NewPipeWireCapture(config.AudioConfig{SampleRate: 8000, Channels: 1})
	c.command = command
	c.pipewire = nil
	return c
}

func TestPipeWireCapture_RecordsAndEncodes(t *testing.T) {
	// 'y\n' repeated is a loud square-ish signal
	c := newTestCapture(fakeRecorder(t, `yes | head -c 16000; exec sleep 30`))

	rec, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if c.Status() != StatusRecording {
		t.Errorf("Expected RECORDING, got %s", c.Status())
	}

	if _, err := c.Start(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy for a second Start, got: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for rec.Level() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if rec.Level() <= 0 || rec.Level() > 1 {
		t.Errorf("Expected level in (0,1], got %f", rec.Level())
	}

	wav, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if c.Status() != StatusStandby {
		t.Errorf("Expected STANDBY after Stop, got %s", c.Status())
	}

	info, err := DescribeWAV(wav)
	if err != nil {
		t.Fatalf("DescribeWAV failed: %v", err)
	}
	if info.SampleRate != 8000 || info.Channels != 1 || info.BitDepth != 16 {
		t.Errorf("Unexpected format: %+v", info)
	}
	if d := info.Duration - time.Second; d < -time.Millisecond || d > time.Millisecond {
		t.Errorf("Expected 1s of audio, got %s", info.Duration)
	}

	// Stop is idempotent
	again, err := rec.Stop()
	if err != nil || len(again) != len(wav) {
		t.Errorf("Second Stop returned %d bytes, %v", len(again), err)
	}
}

func TestPipeWireCapture_ImmediateExitIsAccessDenied(t *testing.T) {
	c := newTestCapture(fakeRecorder(t, `echo "target not found" >&2; exit 1`))

	_, err := c.Start(context.Background())
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("Expected ErrAccessDenied, got: %v", err)
	}
	if c.Status() != StatusError {
		t.Errorf("Expected ERROR status, got %s", c.Status())
	}
}

func TestPipeWireCapture_MissingBinary(t *testing.T) {
	c := newTestCapture(filepath.Join(t.TempDir(), "does-not-exist"))

	_, err := c.Start(context.Background())
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("Expected ErrAccessDenied, got: %v", err)
	}
}

func TestPipeWireCapture_Abort(t *testing.T) {
	c := newTestCapture(fakeRecorder(t, `exec sleep 30`))

	rec, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := rec.Abort(); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}
	if c.Status() != StatusStandby {
		t.Errorf("Expected STANDBY after Abort, got %s", c.Status())
	}
	if _, err := rec.Stop(); err == nil {
		t.Error("Expected Stop after Abort to fail")
	}
}

func TestPipeWireCapture_SilenceIsNoAudio(t *testing.T) {
	c := newTestCapture(fakeRecorder(t, `exec sleep 30`))

	rec, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := rec.Stop(); !errors.Is(err, ErrNoAudio) {
		t.Errorf("Expected ErrNoAudio, got: %v", err)
	}
}

func TestPipeWireCapture_Args(t *testing.T) {
	c := NewPipeWireCapture(config.AudioConfig{Source: "mic:capture_1", SampleRate: 48000, Channels: 2})
	got := c.args()
	want := []string{"--rate", "48000", "--channels", "2", "--format", "s16", "--target", "mic:capture_1", "-"}
	if len(got) != len(want) {
		t.Fatalf("args() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("args()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFileCapture(t *testing.T) {
	pcm := make([]byte, 800)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	wav, err := EncodeWAV(pcm, 8000, 1)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, wav, 0644); err != nil {
		t.Fatal(err)
	}

	c := NewFileCapture(path)
	rec, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := c.Start(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy, got: %v", err)
	}

	data, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if string(data) != string(wav) {
		t.Error("FileCapture must return the file unchanged")
	}

	info, err := DescribeWAV(data)
	if err != nil {
		t.Fatal(err)
	}
	if d := info.Duration - 50*time.Millisecond; d < -time.Millisecond || d > time.Millisecond {
		t.Errorf("Expected 50ms, got %s", info.Duration)
	}
}

func TestFileCapture_MissingFile(t *testing.T) {
	_, err := NewFileCapture(filepath.Join(t.TempDir(), "missing.wav")).Start(context.Background())
	if !errors.Is(err, ErrAccessDenied) {
		t.Errorf("Expected ErrAccessDenied, got: %v", err)
	}
}

func TestEncodeWAV_DropsPartialFrame(t *testing.T) {
	wav, err := EncodeWAV(make([]byte, 401), 8000, 2)
	if err != nil {
		t.Fatal(err)
	}
	// 44-byte header plus 400 bytes of whole stereo frames
	if len(wav) != 444 {
		t.Errorf("Expected 444 bytes, got %d", len(wav))
	}
	if _, err := EncodeWAV(nil, 0, 1); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}

func TestLevelOf(t *testing.T) {
	if levelOf(nil) != 0 {
		t.Error("Expected silence for no samples")
	}
	if levelOf(make([]byte, 100)) != 0 {
		t.Error("Expected silence for zero samples")
	}
	full := []byte{0x00, 0x80, 0x00, 0x80} // two samples at -32768
	if got := levelOf(full); got != 1 {
		t.Errorf("Expected full scale, got %f", got)
	}
}
