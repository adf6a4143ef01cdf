package session

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/audiolibrelab/tunefinder/internal/audio"
	"github.com/audiolibrelab/tunefinder/internal/history"
	"github.com/audiolibrelab/tunefinder/internal/recognize"
	"github.com/audiolibrelab/tunefinder/internal/track"
)

const (
	DefaultMaxDuration        = 12 * time.Second
	DefaultRecognitionTimeout = 45 * time.Second

	levelStep = 0.02
)

// Controller owns the session state. At most one capture is live and at
// most one recognition is in flight at any time.
//
// Observers registered with OnStateChange run on the goroutine that made
// the change and must not call back into the Controller synchronously.
type Controller struct {
	capture    audio.Capture
	recognizer recognize.Recognizer
	history    *history.Store

	clock              func() time.Time
	maxDuration        time.Duration
	tickInterval       time.Duration
	levelInterval      time.Duration
	recognitionTimeout time.Duration

	// op serializes Start, Stop and Close.
	op sync.Mutex

	mu         sync.Mutex
	state      State
	rec        audio.Recording
	tickCancel context.CancelFunc
	ticks      sync.WaitGroup
	pending    int
	idle       chan struct{}
	closed     bool

	observers map[int]func(State)
	nextID    int

	publishMu sync.Mutex
	delivered uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxDuration stops a recording automatically after d. Zero disables it.
func WithMaxDuration(d time.Duration) Option {
	return func(c *Controller) { c.maxDuration = d }
}

// WithRecognitionTimeout bounds a single recognition call.
func WithRecognitionTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.recognitionTimeout = d
		}
	}
}

// WithClock replaces time.Now for track timestamps.
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithTickInterval changes the length of one elapsed "second" and the level
// sampling period. Used by tests.
func WithTickInterval(tick, level time.Duration) Option {
	return func(c *Controller) {
		if tick > 0 {
			c.tickInterval = tick
		}
		if level > 0 {
			c.levelInterval = level
		}
	}
}

// NewController creates an Idle controller.
func NewController(capture audio.Capture, recognizer recognize.Recognizer, store *history.Store, opts ...Option) *Controller {
	idle := make(chan struct{})
	close(idle)

	c := &Controller{
		capture:            capture,
		recognizer:         recognizer,
		history:            store,
		clock:              time.Now,
		maxDuration:        DefaultMaxDuration,
		tickInterval:       time.Second,
		levelInterval:      100 * time.Millisecond,
		recognitionTimeout: DefaultRecognitionTimeout,
		state:              State{Phase: Idle},
		idle:               idle,
		observers:          make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// OnStateChange registers fn for every published state. The returned
// function removes it.
func (c *Controller) OnStateChange(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Start opens the capture device and enters Recording. It does nothing
// while a capture is live or a recognition is pending. When the device
// cannot be opened the phase is left unchanged, the failure is published
// and an *Error of kind AccessDenied is returned.
func (c *Controller) Start(ctx context.Context) error {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.rec != nil || c.pending > 0 {
		phase := c.state.Phase
		c.mu.Unlock()
		slog.Debug("Start ignored, session busy", "phase", phase)
		return nil
	}
	c.mu.Unlock()

	rec, err := c.capture.Start(ctx)
	if err != nil {
		slog.Warn("Could not open capture device", "error", err)
		c.publish(func(s *State) {
			s.Failure = &Failure{Kind: AccessDenied, Message: err.Error()}
		})
		return &Error{Kind: AccessDenied, Err: err}
	}

	id := uuid.NewString()
	tickCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.rec = rec
	c.tickCancel = cancel
	c.ticks.Add(2)
	c.mu.Unlock()

	c.publish(func(s *State) {
		s.Phase = Recording
		s.ElapsedSeconds = 0
		s.Failure = nil
		s.Level = 0
		s.Capturing = true
		s.SessionID = id
	})
	slog.Info("Listening", "session", id)

	go c.runTimer(tickCtx, id)
	go c.runLevel(tickCtx, rec)

	return nil
}

// Stop ends the live capture and starts recognition of the captured audio.
// Without a live capture it is a no-op. The recognition itself runs in the
// background; it is not cancelled when ctx is.
func (c *Controller) Stop(ctx context.Context) error {
	c.op.Lock()
	defer c.op.Unlock()
	return c.stopLocked(ctx, "")
}

// stopLocked requires c.op. A non-empty id only stops that session.
func (c *Controller) stopLocked(ctx context.Context, id string) error {
	c.mu.Lock()
	rec, cancel := c.rec, c.tickCancel
	if rec == nil || (id != "" && c.state.SessionID != id) {
		c.mu.Unlock()
		return nil
	}
	c.rec, c.tickCancel = nil, nil
	c.mu.Unlock()

	cancel()
	c.ticks.Wait()

	c.publish(func(s *State) {
		s.Phase = Processing
		s.Level = 0
		s.Capturing = false
	})

	blob, err := rec.Stop()
	if err != nil {
		slog.Warn("Capture failed on stop", "error", err)
		c.publish(func(s *State) {
			s.Phase = ShowingError
			s.Failure = &Failure{Kind: AccessDenied, Message: err.Error()}
		})
		return &Error{Kind: AccessDenied, Err: err}
	}

	c.mu.Lock()
	if c.pending == 0 {
		c.idle = make(chan struct{})
	}
	c.pending++
	sessionID := c.state.SessionID
	c.mu.Unlock()

	rctx, rcancel := context.WithTimeout(context.WithoutCancel(ctx), c.recognitionTimeout)
	go func() {
		defer rcancel()
		c.recognize(rctx, sessionID, blob)
	}()
	return nil
}

func (c *Controller) recognize(ctx context.Context, id string, blob []byte) {
	defer c.settle()

	slog.Info("Identifying", "session", id, "bytes", len(blob))
	t, err := c.recognizer.Recognize(ctx, blob)
	if err != nil {
		kind := TransportError
		if recognize.KindOf(err) == recognize.NoMatch {
			kind = NoMatch
		}
		slog.Info("Recognition failed", "session", id, "kind", kind, "error", err)
		c.publish(func(s *State) {
			s.Phase = ShowingError
			s.Failure = &Failure{Kind: kind, Message: err.Error()}
		})
		return
	}

	found := t.WithRecordedAt(c.clock())
	slog.Info("Song identified", "session", id, "title", found.Title, "artist", found.Artist)

	if c.history != nil {
		if err := c.history.Record(found); err != nil {
			slog.Warn("Failed to save history", "error", err)
		}
	}

	c.publish(func(s *State) {
		s.Phase = ShowingResult
		s.CurrentTrack = &found
		s.Failure = nil
	})
}

func (c *Controller) settle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending--
	if c.pending == 0 {
		close(c.idle)
	}
}

// Select shows a history entry. It moves to ShowingResult from any phase
// and leaves a live capture or pending recognition running.
func (c *Controller) Select(t track.Track) {
	c.publish(func(s *State) {
		s.Phase = ShowingResult
		s.CurrentTrack = &t
		s.Failure = nil
	})
}

// Await blocks until no recognition is pending and returns the state.
func (c *Controller) Await(ctx context.Context) (State, error) {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return c.Snapshot(), nil
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}
}

// Close aborts a live capture and rejects further starts. A pending
// recognition is allowed to finish.
func (c *Controller) Close() error {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.Lock()
	c.closed = true
	rec, cancel := c.rec, c.tickCancel
	c.rec, c.tickCancel = nil, nil
	c.mu.Unlock()

	if rec == nil {
		return nil
	}
	cancel()
	c.ticks.Wait()
	c.publish(func(s *State) {
		s.Phase = Idle
		s.Level = 0
		s.Capturing = false
	})
	return rec.Abort()
}

func (c *Controller) runTimer(ctx context.Context, id string) {
	defer c.ticks.Done()

	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var elapsed int
			c.publish(func(s *State) {
				s.ElapsedSeconds++
				elapsed = s.ElapsedSeconds
			})

			if c.maxDuration > 0 && time.Duration(elapsed)*time.Second >= c.maxDuration {
				slog.Debug("Maximum recording length reached", "session", id, "seconds", elapsed)
				go c.autoStop(id)
				return
			}
		}
	}
}

func (c *Controller) autoStop(id string) {
	c.op.Lock()
	defer c.op.Unlock()
	if err := c.stopLocked(context.Background(), id); err != nil {
		slog.Debug("Automatic stop failed", "session", id, "error", err)
	}
}

func (c *Controller) runLevel(ctx context.Context, rec audio.Recording) {
	defer c.ticks.Done()

	ticker := time.NewTicker(c.levelInterval)
	defer ticker.Stop()

	last := 0.0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			level := rec.Level()
			if math.Abs(level-last) < levelStep {
				continue
			}
			last = level
			c.publish(func(s *State) { s.Level = level })
		}
	}
}

// publish applies mutate under the state lock and delivers the new state to
// observers, dropping deliveries that were overtaken by a newer state.
func (c *Controller) publish(mutate func(*State)) {
	c.mu.Lock()
	mutate(&c.state)
	c.state.Version++
	snapshot := c.state.clone()
	fns := make([]func(State), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	if snapshot.Version <= c.delivered {
		return
	}
	c.delivered = snapshot.Version
	for _, fn := range fns {
		fn(snapshot.clone())
	}
}
