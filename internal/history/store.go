// Package history keeps the bounded, deduplicated, newest-first list of
// recognized tracks and persists it through a kv.Store.
package history

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jinzhu/now"

	"github.com/audiolibrelab/tunefinder/internal/kv"
	"github.com/audiolibrelab/tunefinder/internal/track"
)

const (
	// Key is the storage key of the persisted list.
	Key = "searchHistory"
	// MaxEntries is the number of entries retained.
	MaxEntries = 20
)

// Scope restricts Filter to a time window.
type Scope int

const (
	All Scope = iota
	Today
	ThisWeek
)

func (s Scope) String() string {
	switch s {
	case Today:
		return "today"
	case ThisWeek:
		return "week"
	default:
		return "all"
	}
}

// ParseScope accepts all, today and week (or this-week).
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return All, nil
	case "today":
		return Today, nil
	case "week", "this-week", "thisweek":
		return ThisWeek, nil
	}
	return All, fmt.Errorf("unknown scope %q (valid: all, today, week)", s)
}

// Store is the in-memory history backed by a kv.Store. It is safe for
// concurrent use.
type Store struct {
	kv        kv.Store
	clock     func() time.Time
	weekStart time.Weekday

	// write serializes Load, Record and Clear across the store round trip
	// so a reload cannot overwrite a newer in-process change.
	write   sync.Mutex
	lastRaw string
	loaded  bool

	mu        sync.Mutex
	entries   []track.Track
	observers map[int]func([]track.Track)
	nextID    int
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithWeekStart sets the first day of the week used by ThisWeek.
func WithWeekStart(day time.Weekday) Option {
	return func(s *Store) { s.weekStart = day }
}

// New creates an empty Store. Call Load to read the persisted list.
func New(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:        store,
		clock:     time.Now,
		weekStart: time.Sunday,
		observers: make(map[int]func([]track.Track)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted list, repairs entries without a timestamp and
// rewrites legacy entries. An unparsable value resets the history to empty.
// When the stored value is the one this Store last wrote or read, nothing
// changes and observers are not called.
func (s *Store) Load() ([]track.Track, error) {
	s.write.Lock()
	raw, ok, err := s.kv.Get(Key)
	if err != nil {
		s.write.Unlock()
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if s.loaded && ok && raw == s.lastRaw {
		s.write.Unlock()
		return s.Entries(), nil
	}

	var entries []track.Track
	dirty := false
	if ok {
		var legacy bool
		entries, legacy, err = decode(raw)
		switch {
		case errors.Is(err, ErrCorrupt):
			slog.Warn("Resetting unreadable history", "error", err)
			entries, dirty = nil, true
		case err != nil:
			return nil, err
		}
		dirty = dirty || legacy
	}

	stamp := s.clock()
	for i := range entries {
		if entries[i].RecordedAt == nil {
			entries[i] = entries[i].WithRecordedAt(stamp)
			dirty = true
		}
	}
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
		dirty = true
	}

	s.mu.Lock()
	s.entries = entries
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.loaded = true
	s.lastRaw = raw

	if dirty {
		slog.Debug("Persisting repaired history", "entries", len(entries))
		if err := s.persist(snapshot); err != nil {
			s.write.Unlock()
			return snapshot, err
		}
	}
	s.write.Unlock()

	s.notify(snapshot)
	return snapshot, nil
}

// Record adds t, removing an earlier entry with the same identity and
// evicting the oldest entry beyond MaxEntries. t goes above every entry
// that is not newer than it, which is the top for a fresh timestamp.
func (s *Store) Record(t track.Track) error {
	if t.RecordedAt == nil {
		t = t.WithRecordedAt(s.clock())
	}
	at := t.RecordedTime()

	s.write.Lock()
	s.mu.Lock()
	next := make([]track.Track, 0, len(s.entries)+1)
	placed := false
	for _, e := range s.entries {
		if e.SameAs(t) {
			continue
		}
		if !placed && !e.RecordedTime().After(at) {
			next = append(next, t)
			placed = true
		}
		next = append(next, e)
	}
	if !placed {
		next = append(next, t)
	}
	if len(next) > MaxEntries {
		next = next[:MaxEntries]
	}
	s.entries = next
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	slog.Debug("Recorded history entry", "title", t.Title, "artist", t.Artist, "entries", len(snapshot))

	err := s.persist(snapshot)
	s.write.Unlock()
	s.notify(snapshot)
	return err
}

// Clear removes every entry unconditionally.
func (s *Store) Clear() error {
	s.write.Lock()
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()

	err := s.persist(nil)
	s.write.Unlock()
	s.notify([]track.Track{})
	return err
}

// Entries returns a copy of the list, newest first.
func (s *Store) Entries() []track.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Get returns the entry at index i (0 is the newest).
func (s *Store) Get(i int) (track.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.entries) {
		return track.Track{}, false
	}
	return s.entries[i], true
}

// Filter returns the entries inside scope whose title or artist contains
// term, case-insensitively. A blank term matches everything. The order of
// the history is preserved.
func (s *Store) Filter(scope Scope, term string) []track.Track {
	entries := s.Entries()

	since := s.scopeStart(scope)
	term = strings.ToLower(strings.TrimSpace(term))

	out := make([]track.Track, 0, len(entries))
	for _, e := range entries {
		if !since.IsZero() && e.RecordedTime().Before(since) {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(e.Title), term) &&
			!strings.Contains(strings.ToLower(e.Artist), term) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (s *Store) scopeStart(scope Scope) time.Time {
	cfg := &now.Config{WeekStartDay: s.weekStart, TimeLocation: time.Local}
	current := cfg.With(s.clock().In(time.Local))
	switch scope {
	case Today:
		return current.BeginningOfDay()
	case ThisWeek:
		return current.BeginningOfWeek()
	default:
		return time.Time{}
	}
}

// OnChange registers fn to run after every change with the new list. The
// returned function removes the observer.
func (s *Store) OnChange(fn func([]track.Track)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Store) snapshotLocked() []track.Track {
	out := make([]track.Track, len(s.entries))
	copy(out, s.entries)
	return out
}

// persist requires s.write.
func (s *Store) persist(entries []track.Track) error {
	raw, err := encode(entries)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := s.kv.Set(Key, raw); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	s.lastRaw = raw
	return nil
}

func (s *Store) notify(entries []track.Track) {
	s.mu.Lock()
	fns := make([]func([]track.Track), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(entries)
	}
}
