package share

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/audiolibrelab/tunefinder/internal/track"
)

func TestFor(t *testing.T) {
	tests := []struct {
		name  string
		links track.Links
		want  string
	}{
		{"spotify first", track.Links{Spotify: "s", YouTube: "y", AppleMusic: "a"}, "s"},
		{"youtube before apple", track.Links{YouTube: "y", AppleMusic: "a"}, "y"},
		{"apple only", track.Links{AppleMusic: "a"}, "a"},
		{"app url", track.Links{}, "https://app.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := For(track.Track{Title: "Yesterday", Artist: "The Beatles", Links: tt.links}, "https://app.example")
			if p.URL != tt.want {
				t.Errorf("URL = %q, want %q", p.URL, tt.want)
			}
			if p.Text != "Yesterday by The Beatles" || p.Title != "Yesterday" {
				t.Errorf("payload = %+v", p)
			}
		})
	}
}

func TestClipboardFallbackNotifies(t *testing.T) {
	var copied, notified string
	chain := Chain{
		Command{},
		Clipboard{
			Notify: func(text string) { notified = text },
			write:  func(text string) error { copied = text; return nil },
		},
	}

	p := Payload{Title: "T", Text: "T by A", URL: "https://x"}
	if err := chain.Share(context.Background(), p); err != nil {
		t.Fatalf("Share: %v", err)
	}
	if copied != "T by A\nhttps://x" {
		t.Errorf("copied = %q", copied)
	}
	if notified != copied {
		t.Errorf("notified = %q, want %q", notified, copied)
	}
}

func TestChainFallsBackToPrint(t *testing.T) {
	var out bytes.Buffer
	chain := Chain{
		Command{},
		Clipboard{write: func(string) error { return errors.New("no display") }},
		Print{W: &out},
	}

	if err := chain.Share(context.Background(), Payload{Text: "T by A", URL: "u"}); err != nil {
		t.Fatalf("Share: %v", err)
	}
	if out.String() != "T by A\nu\n" {
		t.Errorf("printed %q", out.String())
	}
}

func TestChainAllFail(t *testing.T) {
	chain := Chain{Command{}, Clipboard{write: func(string) error { return errors.New("boom") }}}
	err := chain.Share(context.Background(), Payload{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error should include ErrUnavailable: %v", err)
	}
}

func TestCommandReceivesPayload(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "shared.txt")
	cmd := Command{Line: `printf '%s|%s|' "$SHARE_TITLE" "$SHARE_URL" > ` + out + ` && cat >> ` + out}

	p := Payload{Title: "Yesterday", Text: "Yesterday by The Beatles", URL: "https://open.spotify.com/track/1"}
	if err := cmd.Share(context.Background(), p); err != nil {
		t.Fatalf("Share: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	want := "Yesterday|https://open.spotify.com/track/1|Yesterday by The Beatles\nhttps://open.spotify.com/track/1"
	if string(data) != want {
		t.Errorf("command saw %q, want %q", data, want)
	}
}

func TestCommandFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
	err := Command{Line: "echo nope >&2; exit 3"}.Share(context.Background(), Payload{})
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Errorf("error = %v, want command output", err)
	}
}

func TestDeliverReportsMethod(t *testing.T) {
	var out bytes.Buffer
	p := Payload{Text: "T by A", URL: "u"}

	tests := []struct {
		name  string
		chain Chain
		want  Method
	}{
		{"clipboard", Chain{Command{}, Clipboard{write: func(string) error { return nil }}, Print{W: &out}}, ByClipboard},
		{"print", Chain{Command{}, Clipboard{write: func(string) error { return errors.New("no display") }}, Print{W: &out}}, ByPrint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Deliver(context.Background(), tt.chain, p)
			if err != nil {
				t.Fatalf("Deliver: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected method %q, got %q", tt.want, got)
			}
		})
	}
}

func TestInteractiveChainReportsUnavailable(t *testing.T) {
	chain := Chain{Command{}, unavailable{}}
	_, err := Deliver(context.Background(), chain, Payload{Text: "T by A"})
	if err != ErrUnavailable {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}

	if got := Interactive(""); len(got) != 2 {
		t.Fatalf("Expected command and clipboard steps, got %d", len(got))
	}
	for _, s := range Interactive("") {
		if _, ok := s.(Print); ok {
			t.Error("Interactive chain must not print")
		}
	}
}

type unavailable struct{}

func (unavailable) Share(context.Context, Payload) error { return ErrUnavailable }
