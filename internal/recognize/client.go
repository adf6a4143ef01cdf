// Package recognize talks to the music recognition service and maps its
// answers onto tracks.
package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/audiolibrelab/tunefinder/internal/track"
)

const (
	DefaultEndpoint = "https://api.audd.io/"
	DefaultReturn   = "apple_music,spotify,youtube"
	DefaultTimeout  = 30 * time.Second

	// artworkSize replaces the {w} and {h} placeholders of templated
	// artwork URLs.
	artworkSize = "300"

	maxResponseBytes = 4 << 20
)

// Recognizer identifies a song from a recorded audio blob. Implementations
// make exactly one attempt per call.
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte) (*track.Track, error)
}

// Client is a Recognizer backed by the AudD HTTP API.
type Client struct {
	endpoint string
	token    string
	ret      string
	http     *http.Client
}

// Option configures a Client.
type Option func(*Client)

func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithReturn sets the companion platforms requested from the service.
func WithReturn(platforms string) Option {
	return func(c *Client) {
		if platforms != "" {
			c.ret = platforms
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient creates a Client authenticating with token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		endpoint: DefaultEndpoint,
		token:    token,
		ret:      DefaultReturn,
		http:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// response mirrors the service payload.
type response struct {
	Status string  `json:"status"`
	Result *result `json:"result"`
	Error  *struct {
		Code    int    `json:"error_code"`
		Message string `json:"error_message"`
	} `json:"error"`
}

type result struct {
	Artist      string        `json:"artist"`
	Title       string        `json:"title"`
	Album       string        `json:"album"`
	ReleaseDate string        `json:"release_date"`
	SongLink    string        `json:"song_link"`
	Spotify     PlatformField `json:"spotify"`
	AppleMusic  PlatformField `json:"apple_music"`
	YouTube     PlatformField `json:"youtube"`
}

// Recognize uploads audio and returns the identified track.
func (c *Client) Recognize(ctx context.Context, audio []byte) (*track.Track, error) {
	body, contentType, err := c.encodeForm(audio)
	if err != nil {
		return nil, transport(fmt.Errorf("failed to build request body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, transport(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	slog.Debug("Sending recognition request", "endpoint", c.endpoint, "audio_bytes", len(audio))
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transport(fmt.Errorf("failed to call recognition service: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transport(fmt.Errorf("failed to read response: %w", err))
	}

	slog.Debug("Recognition response received", "status", resp.StatusCode, "bytes", len(data), "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, transport(fmt.Errorf("recognition service returned status %d", resp.StatusCode))
	}

	var parsed response
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, transport(fmt.Errorf("failed to parse response: %w", err))
	}

	return parsed.toTrack()
}

func (c *Client) encodeForm(audio []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("api_token", c.token); err != nil {
		return nil, "", err
	}
	part, err := w.CreateFormFile("file", "recording.wav")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("return", c.ret); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func (r *response) toTrack() (*track.Track, error) {
	if r.Status != "success" {
		if r.Error != nil {
			return nil, transport(fmt.Errorf("service error %d: %s", r.Error.Code, r.Error.Message))
		}
		return nil, transport(fmt.Errorf("unexpected status %q", r.Status))
	}
	if r.Result == nil {
		return nil, noMatch("service returned no result")
	}

	res := r.Result
	title := strings.TrimSpace(res.Title)
	if title == "" {
		return nil, noMatch("result has no title")
	}

	t := &track.Track{
		Title:       title,
		Artist:      strings.TrimSpace(res.Artist),
		Album:       strings.TrimSpace(res.Album),
		ReleaseDate: strings.TrimSpace(res.ReleaseDate),
		ArtworkURL:  res.artwork(),
		Links: track.Links{
			Spotify:    Normalize(res.Spotify, spotifyKeys...),
			AppleMusic: Normalize(res.AppleMusic, appleMusicKeys...),
			YouTube:    Normalize(res.YouTube, youtubeKeys...),
		},
	}

	if !t.Links.HasNativeLinks() {
		t.Links.YouTube = track.YouTubeSearchURL(t.Title, t.Artist)
	}

	return t, nil
}

func (r *result) artwork() string {
	if u := r.Spotify.Lookup("album.images.0.url"); u != "" {
		return u
	}
	if u := r.AppleMusic.Lookup("artwork.url"); u != "" {
		return strings.NewReplacer("{w}", artworkSize, "{h}", artworkSize).Replace(u)
	}
	return track.PlaceholderArtwork
}

// IsNoMatch reports whether err means the service found nothing.
func IsNoMatch(err error) bool {
	return errors.Is(err, ErrNoMatch)
}
