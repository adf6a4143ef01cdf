package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/audiolibrelab/tunefinder/internal/locale"
	"github.com/audiolibrelab/tunefinder/internal/service"
	"github.com/audiolibrelab/tunefinder/internal/session"
	"github.com/audiolibrelab/tunefinder/internal/track"
)

// report prints a settled session state. Failures become the command error.
func report(w io.Writer, svc *service.Service, st session.State) error {
	switch st.Phase {
	case session.ShowingResult:
		if st.CurrentTrack != nil {
			printTrack(w, svc, *st.CurrentTrack)
			return nil
		}
	case session.ShowingError:
		return errors.New(svc.Describe(st))
	}
	if st.Failure != nil {
		return errors.New(svc.DescribeFailure(st.Failure.Kind))
	}
	return nil
}

// printTrack prints the result card of t
func printTrack(w io.Writer, svc *service.Service, t track.Track) {
	fmt.Fprintf(w, "🎵 %s\n", svc.Printer.Sprintf(locale.MsgFound, t.Title, t.Artist))
	if t.Album != "" {
		fmt.Fprintf(w, "   album: %s\n", t.Album)
	}
	if t.ReleaseDate != "" {
		fmt.Fprintf(w, "   released: %s\n", t.ReleaseDate)
	}
	if t.Links.Spotify != "" {
		fmt.Fprintf(w, "   spotify: %s\n", t.Links.Spotify)
	}
	if t.Links.AppleMusic != "" {
		fmt.Fprintf(w, "   apple music: %s\n", t.Links.AppleMusic)
	}
	if t.Links.HasNativeLinks() {
		if t.Links.YouTube != "" {
			fmt.Fprintf(w, "   youtube: %s\n", t.Links.YouTube)
		}
	} else {
		fmt.Fprintf(w, "   %s: %s\n", svc.Printer.Sprintf(locale.MsgSearchOnYT), t.YouTubeURL())
	}
	fmt.Fprintf(w, "   artwork: %s\n", t.Artwork())
	if at := t.RecordedTime(); !at.IsZero() {
		fmt.Fprintf(w, "   identified: %s (%s)\n", at.Local().Format("2006-01-02 15:04"), humanize.Time(at))
	}
}

// parsePosition turns a 1-based history position into an index
func parsePosition(arg string, length int) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid history position %q: must be a number", arg)
	}
	if n < 1 || n > length {
		if length == 0 {
			return 0, fmt.Errorf("history is empty")
		}
		return 0, fmt.Errorf("history position %d out of range (1-%d)", n, length)
	}
	return n - 1, nil
}

func formatElapsed(seconds int, limit time.Duration) string {
	if limit <= 0 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%ds / %ds", seconds, int(limit/time.Second))
}
