package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/audiolibrelab/tunefinder/internal/track"
)

// ErrCorrupt marks a persisted history that could not be parsed.
var ErrCorrupt = errors.New("history storage corrupt")

// stored accepts both the current entry shape and the flat one written by
// the browser client (albumArt, spotifyLink, appleLink, youtubeLink, timestamp).
type stored struct {
	Title       string      `json:"title"`
	Artist      string      `json:"artist"`
	Album       string      `json:"album"`
	ReleaseDate string      `json:"releaseDate"`
	ArtworkURL  string      `json:"artworkUrl"`
	Links       track.Links `json:"links"`
	RecordedAt  *time.Time  `json:"recordedAt"`

	AlbumArt    string  `json:"albumArt"`
	SpotifyLink *string `json:"spotifyLink"`
	AppleLink   *string `json:"appleLink"`
	YouTubeLink *string `json:"youtubeLink"`
	Timestamp   string  `json:"timestamp"`
}

// decode parses a persisted list. The bool result reports whether any entry
// used the legacy shape and should be rewritten.
func decode(raw string) ([]track.Track, bool, error) {
	var items []stored
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	legacy := false
	entries := make([]track.Track, 0, len(items))
	for _, it := range items {
		t, old := it.toTrack()
		legacy = legacy || old
		entries = append(entries, t)
	}
	return entries, legacy, nil
}

func (s stored) toTrack() (track.Track, bool) {
	t := track.Track{
		Title:       s.Title,
		Artist:      s.Artist,
		Album:       s.Album,
		ReleaseDate: s.ReleaseDate,
		ArtworkURL:  s.ArtworkURL,
		Links:       s.Links,
		RecordedAt:  s.RecordedAt,
	}

	legacy := false
	if t.ArtworkURL == "" && s.AlbumArt != "" {
		t.ArtworkURL, legacy = s.AlbumArt, true
	}
	if t.Links.Spotify == "" && s.SpotifyLink != nil {
		t.Links.Spotify, legacy = *s.SpotifyLink, true
	}
	if t.Links.AppleMusic == "" && s.AppleLink != nil {
		t.Links.AppleMusic, legacy = *s.AppleLink, true
	}
	if t.Links.YouTube == "" && s.YouTubeLink != nil {
		t.Links.YouTube, legacy = *s.YouTubeLink, true
	}
	if t.RecordedAt == nil && s.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339Nano, s.Timestamp); err == nil {
			t.RecordedAt, legacy = &ts, true
		}
	}
	if t.ArtworkURL == "" {
		t.ArtworkURL = track.PlaceholderArtwork
		legacy = true
	}
	return t, legacy
}

func encode(entries []track.Track) (string, error) {
	if entries == nil {
		entries = []track.Track{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
