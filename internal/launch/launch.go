// Package launch opens track links with the desktop's URL handler.
package launch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	"github.com/audiolibrelab/tunefinder/internal/track"
)

// Platform names accepted by LinkFor.
const (
	Spotify    = "spotify"
	AppleMusic = "apple"
	YouTube    = "youtube"
	Artwork    = "artwork"
)

// LinkFor picks the link of t to open. An empty platform means the best
// available streaming link, with the YouTube search as last resort.
func LinkFor(t track.Track, platform string) (string, error) {
	var link string
	switch strings.ToLower(platform) {
	case "":
		link = t.ShareURL("")
		if link == "" {
			link = t.YouTubeURL()
		}
	case Spotify:
		link = t.Links.Spotify
	case AppleMusic, "apple_music", "applemusic":
		link = t.Links.AppleMusic
	case YouTube:
		link = t.YouTubeURL()
	case Artwork:
		link = t.Artwork()
	default:
		return "", fmt.Errorf("unknown platform: %s (valid: spotify, apple, youtube, artwork)", platform)
	}
	if link == "" {
		return "", fmt.Errorf("no %s link for %s by %s", platform, t.Title, t.Artist)
	}
	return link, nil
}

// opener is one candidate handler and the arguments placed before the URL.
type opener struct {
	name string
	args []string
}

// Launcher opens URLs with the first handler found on PATH.
type Launcher struct {
	candidates []opener
}

func New() *Launcher {
	return &Launcher{candidates: platformOpeners(runtime.GOOS)}
}

func platformOpeners(goos string) []opener {
	switch goos {
	case "darwin":
		return []opener{{name: "open"}}
	case "windows":
		return []opener{{name: "rundll32", args: []string{"url.dll,FileProtocolHandler"}}}
	default:
		// List of handlers in order of preference
		return []opener{
			{name: "xdg-open"},
			{name: "gio", args: []string{"open"}},
			{name: "wslview"},
			{name: "sensible-browser"},
		}
	}
}

func (l *Launcher) find() (opener, error) {
	names := make([]string, 0, len(l.candidates))
	for _, c := range l.candidates {
		if _, err := exec.LookPath(c.name); err == nil {
			return c, nil
		}
		names = append(names, c.name)
	}
	return opener{}, fmt.Errorf("no URL handler found (tried: %s)", strings.Join(names, ", "))
}

// Open hands link to the URL handler. Only http and https links are opened.
func (l *Launcher) Open(ctx context.Context, link string) error {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("refusing to open %q: not a web link", link)
	}

	handler, err := l.find()
	if err != nil {
		return err
	}

	args := append(append([]string{}, handler.args...), link)
	cmd := exec.CommandContext(ctx, handler.name, args...)
	slog.Debug("Opening link", "handler", handler.name, "url", link)

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("opening link failed with %s: %w\nOutput: %s", handler.name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
