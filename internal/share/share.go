// Package share hands a recognized track to the platform share facility,
// falling back to the clipboard and finally to plain output.
package share

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/audiolibrelab/tunefinder/internal/track"
)

// ErrUnavailable is returned by a Sharer that cannot run on this system.
var ErrUnavailable = errors.New("share method unavailable")

// Payload is what gets shared.
type Payload struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

// String renders the payload as one message.
func (p Payload) String() string {
	if p.URL == "" {
		return p.Text
	}
	return p.Text + "\n" + p.URL
}

// For builds the payload of t. appURL is used when the track has no link.
func For(t track.Track, appURL string) Payload {
	return Payload{
		Title: t.Title,
		Text:  fmt.Sprintf("%s by %s", t.Title, t.Artist),
		URL:   t.ShareURL(appURL),
	}
}

// Method names the step of a chain that delivered a payload.
type Method string

const (
	ByCommand   Method = "command"
	ByClipboard Method = "clipboard"
	ByPrint     Method = "print"
	ByOther     Method = "other"
)

// Receipt tells a front end what was shared and how.
type Receipt struct {
	Payload Payload
	Method  Method
}

// Sharer delivers a payload somewhere.
type Sharer interface {
	Share(ctx context.Context, p Payload) error
}

// Command runs a user-configured share command through the shell. The
// payload is available as $SHARE_TITLE, $SHARE_TEXT and $SHARE_URL and the
// full message is written to stdin.
type Command struct {
	Line string
}

func (c Command) Share(ctx context.Context, p Payload) error {
	if strings.TrimSpace(c.Line) == "" {
		return ErrUnavailable
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/c", c.Line)
	} else {
		cmd = exec.CommandContext(ctx, "/bin/sh", "-c", c.Line)
	}
	cmd.Env = append(os.Environ(),
		"SHARE_TITLE="+p.Title,
		"SHARE_TEXT="+p.Text,
		"SHARE_URL="+p.URL,
	)
	cmd.Stdin = strings.NewReader(p.String())

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("share command failed: %w (output: %s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Clipboard copies the payload to the system clipboard and reports the
// copied text through Notify.
type Clipboard struct {
	Notify func(text string)

	write func(string) error
}

func (c Clipboard) Share(_ context.Context, p Payload) error {
	write := c.write
	if write == nil {
		if clipboard.Unsupported {
			return ErrUnavailable
		}
		write = clipboard.WriteAll
	}

	text := p.String()
	if err := write(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	if c.Notify != nil {
		c.Notify(text)
	}
	return nil
}

// Print writes the payload to W. It never fails unless the writer does.
type Print struct {
	W io.Writer
}

func (p Print) Share(_ context.Context, payload Payload) error {
	_, err := fmt.Fprintln(p.W, payload.String())
	return err
}

// Chain tries each Sharer in order until one succeeds.
type Chain []Sharer

func (c Chain) Share(ctx context.Context, p Payload) error {
	_, err := c.deliver(ctx, p)
	return err
}

// deliver returns ErrUnavailable itself when no step could run at all.
func (c Chain) deliver(ctx context.Context, p Payload) (Method, error) {
	var errs []error
	unavailable := true
	for _, s := range c {
		method, err := Deliver(ctx, s, p)
		if err == nil {
			return method, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			unavailable = false
			slog.Debug("Share method failed, trying next", "method", fmt.Sprintf("%T", s), "error", err)
		}
		errs = append(errs, err)
	}
	if unavailable {
		return "", ErrUnavailable
	}
	return "", errors.Join(errs...)
}

// Deliver shares p with s and reports which method got it through.
func Deliver(ctx context.Context, s Sharer, p Payload) (Method, error) {
	if c, ok := s.(Chain); ok {
		return c.deliver(ctx, p)
	}
	if err := s.Share(ctx, p); err != nil {
		return "", err
	}
	switch s.(type) {
	case Command:
		return ByCommand, nil
	case Clipboard:
		return ByClipboard, nil
	case Print:
		return ByPrint, nil
	}
	return ByOther, nil
}

// Default returns the usual chain: the configured command, the clipboard,
// then printing to out.
func Default(command string, notify func(string), out io.Writer) Chain {
	return Chain{
		Command{Line: command},
		Clipboard{Notify: notify},
		Print{W: out},
	}
}

// Interactive is the chain for front ends that render the Receipt
// themselves. It has no print step, so a payload nobody took comes back as
// ErrUnavailable instead of vanishing.
func Interactive(command string) Chain {
	return Chain{
		Command{Line: command},
		Clipboard{},
	}
}
