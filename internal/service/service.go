// Package service wires configuration, storage, capture and recognition
// into the components every front end shares.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/audiolibrelab/tunefinder/internal/audio"
	"github.com/audiolibrelab/tunefinder/internal/config"
	"github.com/audiolibrelab/tunefinder/internal/history"
	"github.com/audiolibrelab/tunefinder/internal/kv"
	"github.com/audiolibrelab/tunefinder/internal/launch"
	"github.com/audiolibrelab/tunefinder/internal/locale"
	"github.com/audiolibrelab/tunefinder/internal/prefs"
	"github.com/audiolibrelab/tunefinder/internal/recognize"
	"github.com/audiolibrelab/tunefinder/internal/session"
	"github.com/audiolibrelab/tunefinder/internal/share"
	"github.com/audiolibrelab/tunefinder/internal/track"
)

// Options override parts of the wiring. Zero values use the configuration.
type Options struct {
	// Ephemeral keeps history and preferences in memory only
	Ephemeral  bool
	Store      kv.Store
	Capture    audio.Capture
	Recognizer recognize.Recognizer
	Sharer     share.Sharer
	// Interactive front ends show share receipts themselves, so sharing
	// never falls back to printing on Out.
	Interactive bool
	// Out receives share output when no other share method works
	Out io.Writer
}

// Service holds the shared components of one tunefinder process
type Service struct {
	cfg        *config.Config
	configFile string

	store      kv.Store
	recognizer recognize.Recognizer
	sharer     share.Sharer
	launcher   *launch.Launcher

	History    *history.Store
	Themes     *prefs.Themes
	Controller *session.Controller
	Locale     language.Tag
	Printer    *message.Printer

	closeOnce sync.Once
}

// New opens the store, loads the history and builds the controller
func New(cfg *config.Config, configFile string, opts Options) (*Service, error) {
	store := opts.Store
	if store == nil {
		backend := cfg.Storage.Backend
		if opts.Ephemeral {
			backend = kv.BackendMemory
		}
		var err error
		store, err = kv.Open(backend, cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
	}

	tag := locale.Parse(cfg.UI.Locale)
	hist := history.New(store, history.WithWeekStart(locale.WeekStart(tag)))
	if _, err := hist.Load(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	recognizer := opts.Recognizer
	if recognizer == nil {
		if cfg.Recognition.APIToken == "" {
			slog.Warn("No recognition API token configured, requests will be rate limited",
				"hint", "set recognition.api_token or TUNEFINDER_API_TOKEN")
		}
		recognizer = recognize.NewClient(cfg.Recognition.APIToken,
			recognize.WithEndpoint(cfg.Recognition.Endpoint),
			recognize.WithReturn(cfg.Recognition.Return),
			recognize.WithTimeout(cfg.Recognition.Timeout))
	}

	capture := opts.Capture
	if capture == nil {
		var err error
		capture, err = audio.NewCapture(cfg.Audio)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to create audio capture: %w", err)
		}
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	printer := locale.Printer(tag)

	s := &Service{
		cfg:        cfg,
		configFile: configFile,
		store:      store,
		recognizer: recognizer,
		launcher:   launch.New(),
		History:    hist,
		Themes:     prefs.NewThemes(store),
		Locale:     tag,
		Printer:    printer,
	}
	switch {
	case opts.Sharer != nil:
		s.sharer = opts.Sharer
	case opts.Interactive:
		s.sharer = share.Interactive(cfg.UI.ShareCommand)
	default:
		s.sharer = share.Default(cfg.UI.ShareCommand, func(text string) {
			fmt.Fprintln(out, printer.Sprintf(locale.MsgCopied, text))
		}, out)
	}
	s.Controller = s.newController(capture)

	slog.Debug("Service ready",
		"storage", cfg.Storage.Backend,
		"ephemeral", opts.Ephemeral,
		"locale", tag.String(),
		"history_entries", hist.Len())
	return s, nil
}

func (s *Service) newController(capture audio.Capture) *session.Controller {
	return session.NewController(capture, s.recognizer, s.History,
		session.WithMaxDuration(s.cfg.Audio.MaxDuration),
		session.WithRecognitionTimeout(s.cfg.Recognition.Timeout+s.cfg.Recognition.Timeout/2))
}

// Config returns the resolved configuration
func (s *Service) Config() *config.Config {
	return s.cfg
}

// ConfigFile returns the path the configuration was loaded from
func (s *Service) ConfigFile() string {
	return s.configFile
}

// IdentifyFile runs one listen cycle with the file at path standing in for
// the microphone. When ffmpeg is available only max_duration of audio
// starting at offset is sent. The result goes through the same history and
// state rules as a live capture.
func (s *Service) IdentifyFile(ctx context.Context, path string, offset time.Duration) (session.State, error) {
	capture := audio.NewFileCapture(path,
		audio.WithTrim(audio.NewTrimmer(s.cfg.Audio), offset, s.cfg.Audio.MaxDuration))
	ctrl := s.newController(capture)
	defer ctrl.Close()

	if err := ctrl.Start(ctx); err != nil {
		return ctrl.Snapshot(), err
	}
	if err := ctrl.Stop(ctx); err != nil {
		return ctrl.Snapshot(), err
	}
	return ctrl.Await(ctx)
}

// Share hands t to the configured share chain. The receipt carries the
// payload even when sharing failed.
func (s *Service) Share(ctx context.Context, t track.Track) (share.Receipt, error) {
	r := share.Receipt{Payload: share.For(t, s.cfg.UI.AppURL)}
	slog.Debug("Sharing track", "title", t.Title, "url", r.Payload.URL)

	method, err := share.Deliver(ctx, s.sharer, r.Payload)
	if err != nil {
		return r, fmt.Errorf("failed to share: %w", err)
	}
	r.Method = method
	return r, nil
}

// Open shows the platform link of t in the browser
func (s *Service) Open(ctx context.Context, t track.Track, platform string) (string, error) {
	link, err := launch.LinkFor(t, platform)
	if err != nil {
		return "", err
	}
	return link, s.launcher.Open(ctx, link)
}

// Describe renders the localized status line for st
func (s *Service) Describe(st session.State) string {
	switch st.Phase {
	case session.Recording:
		return s.Printer.Sprintf(locale.MsgListening)
	case session.Processing:
		return s.Printer.Sprintf(locale.MsgSearching)
	case session.ShowingResult:
		if st.CurrentTrack != nil {
			return s.Printer.Sprintf(locale.MsgFound, st.CurrentTrack.Title, st.CurrentTrack.Artist)
		}
	case session.ShowingError:
		if st.Failure != nil {
			return s.DescribeFailure(st.Failure.Kind)
		}
	}
	if st.Failure != nil {
		return s.DescribeFailure(st.Failure.Kind)
	}
	return s.Printer.Sprintf(locale.MsgReady)
}

// DescribeFailure renders the localized message for an error kind
func (s *Service) DescribeFailure(kind session.ErrorKind) string {
	switch kind {
	case session.AccessDenied:
		return s.Printer.Sprintf(locale.MsgAccessDenied)
	case session.NoMatch:
		return s.Printer.Sprintf(locale.MsgNoMatchHint)
	default:
		return s.Printer.Sprintf(locale.MsgTransportError)
	}
}

// Watch reloads the history whenever another process rewrites the store.
// It returns immediately for stores that cannot be watched.
func (s *Service) Watch(ctx context.Context) error {
	fs, ok := s.store.(*kv.FileStore)
	if !ok {
		return nil
	}
	return fs.Watch(ctx, func() {
		if _, err := s.History.Load(); err != nil {
			slog.Warn("Failed to reload history", "error", err)
		}
	})
}

// Close aborts any live capture and closes the store
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = errors.Join(s.Controller.Close(), s.store.Close())
	})
	return err
}
