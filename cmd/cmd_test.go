package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiolibrelab/tunefinder/internal/audio"
	"github.com/audiolibrelab/tunefinder/internal/recognize"
	"github.com/audiolibrelab/tunefinder/internal/service"
	"github.com/audiolibrelab/tunefinder/internal/track"
)

type stubRecognizer struct {
	track *track.Track
	err   error
}

func (r stubRecognizer) Recognize(ctx context.Context, blob []byte) (*track.Track, error) {
	if r.err != nil {
		return nil, r.err
	}
	t := *r.track
	return &t, nil
}

var hello = track.Track{
	Title:  "Hello",
	Artist: "Adele",
	Links:  track.Links{Spotify: "https://open.spotify.com/track/hello"},
}

// executeCommand runs root with args and returns everything written to out and err.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	_, err = root.ExecuteC()
	return buf.String(), err
}

// resetFlags restores every flag to its default so runs do not leak into each other
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

type fixture struct {
	configFile string
	clip       string
	dir        string
}

// setup writes a config with file storage in a temp dir and replaces the
// service factory with one that records from clip and uses rec.
func setup(t *testing.T, rec recognize.Recognizer) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		configFile: filepath.Join(dir, "tunefinder.yaml"),
		clip:       filepath.Join(dir, "clip.wav"),
		dir:        dir,
	}
	conf := "storage:\n  backend: file\n  path: " + filepath.Join(dir, "store.json") + "\n"
	require.NoError(t, os.WriteFile(f.configFile, []byte(conf), 0644))
	require.NoError(t, os.WriteFile(f.clip, []byte("RIFF-clip"), 0644))

	prev := newService
	newService = func(cmd *cobra.Command) (*service.Service, error) {
		return service.New(cfg, cfgFile, service.Options{
			Capture:    audio.NewFileCapture(f.clip),
			Recognizer: rec,
			Out:        cmd.OutOrStdout(),
		})
	}
	t.Cleanup(func() {
		newService = prev
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	})
	return f
}

func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	return executeCommand(rootCmd, append([]string{"--config", f.configFile}, args...)...)
}

func TestIdentifyRecordsHistory(t *testing.T) {
	f := setup(t, stubRecognizer{track: &hello})

	out, err := f.run(t, "identify", f.clip)
	require.NoError(t, err)
	assert.Contains(t, out, "Found: Hello by Adele")
	assert.Contains(t, out, "spotify: https://open.spotify.com/track/hello")

	out, err = f.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "1. Hello - Adele")
}

func TestIdentifyMissingFile(t *testing.T) {
	f := setup(t, stubRecognizer{track: &hello})

	_, err := f.run(t, "identify", filepath.Join(f.dir, "missing.wav"))
	if err == nil {
		t.Fatal("Expected error for missing file, got nil")
	}
}

func TestIdentifyNoMatch(t *testing.T) {
	f := setup(t, stubRecognizer{err: &recognize.Error{Kind: recognize.NoMatch, Err: recognize.ErrNoMatch}})

	_, err := f.run(t, "identify", f.clip)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not find any information")

	out, err := f.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No songs in history yet")
}

func TestListenStopsOnEnter(t *testing.T) {
	f := setup(t, stubRecognizer{track: &hello})
	rootCmd.SetIn(strings.NewReader("\n"))

	out, err := f.run(t, "listen")
	require.NoError(t, err)
	assert.Contains(t, out, "Press Enter to stop.")
	assert.Contains(t, out, "Searching for the song...")
	assert.Contains(t, out, "Found: Hello by Adele")
}

func TestHistoryJSONAndSearch(t *testing.T) {
	f := setup(t, stubRecognizer{track: &hello})
	_, err := f.run(t, "identify", f.clip)
	require.NoError(t, err)

	out, err := f.run(t, "history", "--json")
	require.NoError(t, err)
	var entries []track.Track
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Hello", entries[0].Title)

	out, err = f.run(t, "history", "--search", "beatles", "--json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)

	_, err = f.run(t, "history", "--scope", "month")
	assert.Error(t, err)
}

func TestHistoryShow(t *testing.T) {
	f := setup(t, stubRecognizer{track: &hello})
	_, err := f.run(t, "identify", f.clip)
	require.NoError(t, err)

	out, err := f.run(t, "history", "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Found: Hello by Adele")
	assert.Contains(t, out, "identified:")

	_, err = f.run(t, "history", "show", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestHistoryClear(t *testing.T) {
	f := setup(t, stubRecognizer{track: &hello})
	_, err := f.run(t, "identify", f.clip)
	require.NoError(t, err)

	rootCmd.SetIn(strings.NewReader("n\n"))
	out, err := f.run(t, "history", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted")

	out, err = f.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello - Adele")

	rootCmd.SetIn(strings.NewReader("y\n"))
	out, err = f.run(t, "history", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "History cleared")

	out, err = f.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No songs in history yet")
}

func TestShareUsesCommand(t *testing.T) {
	f := setup(t, stubRecognizer{track: &hello})
	_, err := f.run(t, "identify", f.clip)
	require.NoError(t, err)

	shared := filepath.Join(f.dir, "shared.txt")
	line := `printf '%s' "$SHARE_TEXT" > ` + shared
	_, err = f.run(t, "config", "set", "ui.share_command", line)
	require.NoError(t, err)

	_, err = f.run(t, "share")
	require.NoError(t, err)
	data, err := os.ReadFile(shared)
	require.NoError(t, err)
	assert.Equal(t, "Hello by Adele", string(data))
}

func TestShareEmptyHistory(t *testing.T) {
	f := setup(t, stubRecognizer{track: &hello})

	_, err := f.run(t, "share")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history is empty")
}

func TestThemeCommand(t *testing.T) {
	f := setup(t, stubRecognizer{track: &hello})

	out, err := f.run(t, "theme")
	require.NoError(t, err)
	assert.Equal(t, "light\n", out)

	out, err = f.run(t, "theme", "toggle")
	require.NoError(t, err)
	assert.Equal(t, "dark\n", out)

	out, err = f.run(t, "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark\n", out)

	_, err = f.run(t, "theme", "sepia")
	assert.Error(t, err)
}

func TestConfigSetAndShow(t *testing.T) {
	f := setup(t, stubRecognizer{track: &hello})

	_, err := f.run(t, "config", "set", "recognition.api_token", "secret-token-1234")
	require.NoError(t, err)

	out, err := f.run(t, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "secret-token-1234")
	assert.Contains(t, out, "recognition:")

	_, err = f.run(t, "config", "set", "no.such.key", "x")
	assert.Error(t, err)

	out, err = f.run(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, f.configFile+"\n", out)
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		arg    string
		length int
		want   int
		ok     bool
	}{
		{"1", 3, 0, true},
		{"3", 3, 2, true},
		{"0", 3, 0, false},
		{"4", 3, 0, false},
		{"x", 3, 0, false},
		{"1", 0, 0, false},
	}
	for _, tt := range tests {
		got, err := parsePosition(tt.arg, tt.length)
		if tt.ok != (err == nil) {
			t.Errorf("parsePosition(%q, %d): expected ok=%v, got error %v", tt.arg, tt.length, tt.ok, err)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("parsePosition(%q, %d): expected %d, got %d", tt.arg, tt.length, tt.want, got)
		}
	}
}

func TestPositionOfUsesFullHistory(t *testing.T) {
	all := []track.Track{
		{Title: "A", Artist: "X"},
		{Title: "B", Artist: "Y"},
	}
	if got := positionOf(all, track.Track{Title: "B", Artist: "Y"}); got != 2 {
		t.Errorf("Expected position 2, got %d", got)
	}
	if got := positionOf(all, track.Track{Title: "b", Artist: "y"}); got != 0 {
		t.Errorf("Expected no position for a different identity, got %d", got)
	}
}

func TestConfigEditValidates(t *testing.T) {
	f := setup(t, stubRecognizer{track: &hello})

	editor := filepath.Join(f.dir, "editor.sh")
	script := "#!/bin/sh\nprintf 'storage:\\n  backend: floppy\\n' > \"$1\"\n"
	require.NoError(t, os.WriteFile(editor, []byte(script), 0755))
	t.Setenv("EDITOR", editor)

	_, err := f.run(t, "config", "edit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no longer valid")
}
