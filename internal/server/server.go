package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/audiolibrelab/tunefinder/internal/config"
	"github.com/audiolibrelab/tunefinder/internal/history"
	"github.com/audiolibrelab/tunefinder/internal/prefs"
	"github.com/audiolibrelab/tunefinder/internal/session"
	"github.com/audiolibrelab/tunefinder/internal/share"
	"github.com/audiolibrelab/tunefinder/internal/track"
)

// Server exposes the session controller and history over HTTP
type Server struct {
	ctrl           *session.Controller
	history        *history.Store
	themes         *prefs.Themes
	appURL         string
	port           int
	allowedOrigins []string
	events         *broker
}

// GenericResponse is the envelope for actions without a payload
type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// StateResponse wraps a session snapshot
type StateResponse struct {
	Success bool          `json:"success"`
	State   session.State `json:"state"`
}

// HistoryResponse lists filtered history entries
type HistoryResponse struct {
	Success bool          `json:"success"`
	Scope   string        `json:"scope"`
	Query   string        `json:"query,omitempty"`
	Total   int           `json:"total"`
	Entries []track.Track `json:"entries"`
}

// ThemeResponse carries the current theme preference
type ThemeResponse struct {
	Success bool        `json:"success"`
	Theme   prefs.Theme `json:"theme"`
}

// ShareResponse carries a share payload for the client to hand to its own
// share sheet
type ShareResponse struct {
	Success bool          `json:"success"`
	Payload share.Payload `json:"payload"`
	Text    string        `json:"text"`
}

// New creates a server around already wired components
func New(cfg *config.Config, ctrl *session.Controller, store *history.Store, themes *prefs.Themes) *Server {
	return &Server{
		ctrl:           ctrl,
		history:        store,
		themes:         themes,
		appURL:         cfg.UI.AppURL,
		port:           cfg.Server.Port,
		allowedOrigins: cfg.Server.AllowedOrigins,
		events:         newBroker(),
	}
}

// Handler returns the routed handler wrapped with CORS
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/session/start", s.handleStart)
	mux.HandleFunc("/api/session/stop", s.handleStop)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/history/select", s.handleSelect)
	mux.HandleFunc("/api/history/clear", s.handleClear)
	mux.HandleFunc("/api/theme", s.handleTheme)
	mux.HandleFunc("/api/share", s.handleShare)
	mux.HandleFunc("/api/events", s.handleEvents)

	return corsMiddleware(s.allowedOrigins)(mux)
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	unsubscribe := s.subscribe()
	defer unsubscribe()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	localIP := getLocalIP()
	slog.Info("Starting tunefinder web server",
		"port", s.port,
		"local_url", fmt.Sprintf("http://%s:%d", localIP, s.port),
		"localhost_url", fmt.Sprintf("http://localhost:%d", s.port))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Shutting down web server")
		s.events.close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// subscribe forwards controller and history changes to event stream clients
func (s *Server) subscribe() func() {
	offState := s.ctrl.OnStateChange(func(st session.State) {
		s.events.publish("state", st)
	})
	offHistory := s.history.OnChange(func(entries []track.Track) {
		s.events.publish("history", entries)
	})
	return func() {
		offState()
		offHistory()
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(indexHTML))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{Success: true, State: s.ctrl.Snapshot()})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := s.ctrl.Start(r.Context()); err != nil {
		status := http.StatusInternalServerError
		var serr *session.Error
		if errors.As(err, &serr) && serr.Kind == session.AccessDenied {
			status = http.StatusForbidden
		} else if errors.Is(err, session.ErrClosed) {
			status = http.StatusServiceUnavailable
		}
		s.sendErrorResponse(w, status, fmt.Sprintf("Failed to start listening: %v", err),
			"operation", "start_session")
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{Success: true, State: s.ctrl.Snapshot()})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := s.ctrl.Stop(r.Context()); err != nil {
		s.sendErrorResponse(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to stop listening: %v", err),
			"operation", "stop_session")
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{Success: true, State: s.ctrl.Snapshot()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	scope := history.All
	if raw := r.URL.Query().Get("scope"); raw != "" {
		parsed, err := history.ParseScope(raw)
		if err != nil {
			s.sendErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		scope = parsed
	}
	query := r.URL.Query().Get("q")

	entries := s.history.Filter(scope, query)
	writeJSON(w, http.StatusOK, HistoryResponse{
		Success: true,
		Scope:   scope.String(),
		Query:   query,
		Total:   s.history.Len(),
		Entries: entries,
	})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	t, ok := s.entryAt(w, r, true)
	if !ok {
		return
	}
	s.ctrl.Select(t)
	writeJSON(w, http.StatusOK, StateResponse{Success: true, State: s.ctrl.Snapshot()})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	if confirm, _ := strconv.ParseBool(r.Form.Get("confirm")); !confirm {
		s.sendErrorResponse(w, http.StatusBadRequest, "Clearing history requires confirm=true")
		return
	}

	if err := s.history.Clear(); err != nil {
		s.sendErrorResponse(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to clear history: %v", err),
			"operation", "clear_history")
		return
	}
	writeJSON(w, http.StatusOK, GenericResponse{Success: true, Message: "History cleared"})
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		theme, err := s.themes.Get()
		if err != nil {
			s.sendErrorResponse(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to read theme: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, ThemeResponse{Success: true, Theme: theme})

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			s.sendErrorResponse(w, http.StatusBadRequest, "Invalid form data")
			return
		}
		var (
			theme prefs.Theme
			err   error
		)
		switch value := r.Form.Get("theme"); value {
		case "", "toggle":
			theme, err = s.themes.Toggle()
		default:
			theme, err = prefs.ParseTheme(value)
			if err != nil {
				s.sendErrorResponse(w, http.StatusBadRequest, err.Error())
				return
			}
			err = s.themes.Set(theme)
		}
		if err != nil {
			s.sendErrorResponse(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to save theme: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, ThemeResponse{Success: true, Theme: theme})

	default:
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleShare returns the share payload for a history entry, or for the
// track currently shown when no index is given
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var t track.Track
	if r.URL.Query().Has("index") {
		entry, ok := s.entryAt(w, r, false)
		if !ok {
			return
		}
		t = entry
	} else {
		current := s.ctrl.Snapshot().CurrentTrack
		if current == nil {
			s.sendErrorResponse(w, http.StatusNotFound, "No track to share")
			return
		}
		t = *current
	}

	payload := share.For(t, s.appURL)
	writeJSON(w, http.StatusOK, ShareResponse{Success: true, Payload: payload, Text: payload.String()})
}

// handleEvents streams state and history changes as Server-Sent Events
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.sendErrorResponse(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	ch, leave := s.events.join()
	defer leave()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Send the current snapshot so the client can render immediately
	if err := writeEvent(w, event{name: "state", data: s.ctrl.Snapshot()}); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				slog.Debug("Event stream closed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

// entryAt resolves the index query parameter to a history entry, replying
// with an error when it is missing or out of range
func (s *Server) entryAt(w http.ResponseWriter, r *http.Request, form bool) (track.Track, bool) {
	raw := r.URL.Query().Get("index")
	if form {
		if err := r.ParseForm(); err == nil {
			raw = r.Form.Get("index")
		}
	}
	index, err := strconv.Atoi(raw)
	if err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid index %q", raw))
		return track.Track{}, false
	}
	t, ok := s.history.Get(index)
	if !ok {
		s.sendErrorResponse(w, http.StatusNotFound, fmt.Sprintf("No history entry at index %d", index))
		return track.Track{}, false
	}
	return t, true
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				allowed = true
			} else {
				for _, allowedOrigin := range allowedOrigins {
					if allowedOrigin == origin {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						w.Header().Add("Vary", "Origin")
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}

// sendErrorResponse logs the error and sends a JSON error response to the client
func (s *Server) sendErrorResponse(w http.ResponseWriter, statusCode int, errorMsg string, logContext ...any) {
	logFields := []any{"error_message", errorMsg, "status_code", statusCode}
	if len(logContext) > 0 {
		logFields = append(logFields, logContext...)
	}
	slog.Error("Sending error response to client", logFields...)

	writeJSON(w, statusCode, GenericResponse{Success: false, Error: errorMsg})
}

func getLocalIP() string {
	// Try to connect to a remote address to determine local IP
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "localhost"
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String()
}
