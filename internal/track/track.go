package track

import (
	"net/url"
	"time"
)

// PlaceholderArtwork is used whenever the recognition service returns no artwork.
const PlaceholderArtwork = "https://via.placeholder.com/300?text=No+Image"

// Links holds the per-platform deep links of a track. Empty means absent.
type Links struct {
	Spotify    string `json:"spotify,omitempty"`
	AppleMusic string `json:"appleMusic,omitempty"`
	YouTube    string `json:"youtube,omitempty"`
}

// Track is a recognized song.
type Track struct {
	Title       string     `json:"title"`
	Artist      string     `json:"artist"`
	Album       string     `json:"album,omitempty"`
	ReleaseDate string     `json:"releaseDate,omitempty"`
	ArtworkURL  string     `json:"artworkUrl"`
	Links       Links      `json:"links"`
	RecordedAt  *time.Time `json:"recordedAt,omitempty"`
}

// Identity is the deduplication key of a track.
type Identity struct {
	Title  string
	Artist string
}

// Identity returns the (title, artist) pair. Matching is case-sensitive.
func (t Track) Identity() Identity {
	return Identity{Title: t.Title, Artist: t.Artist}
}

// SameAs reports whether both tracks share the same identity.
func (t Track) SameAs(other Track) bool {
	return t.Identity() == other.Identity()
}

// Artwork returns the artwork URL, falling back to the placeholder image.
func (t Track) Artwork() string {
	if t.ArtworkURL == "" {
		return PlaceholderArtwork
	}
	return t.ArtworkURL
}

// YouTubeURL returns the native YouTube link or a search URL built from title and artist.
func (t Track) YouTubeURL() string {
	if t.Links.YouTube != "" {
		return t.Links.YouTube
	}
	return YouTubeSearchURL(t.Title, t.Artist)
}

// HasNativeLinks reports whether any platform link came from the service.
func (l Links) HasNativeLinks() bool {
	return l.Spotify != "" || l.AppleMusic != "" || l.YouTube != ""
}

// YouTubeSearchURL builds the search fallback link for "title artist".
func YouTubeSearchURL(title, artist string) string {
	q := url.Values{}
	q.Set("search_query", title+" "+artist)
	return "https://www.youtube.com/results?" + q.Encode()
}

// ShareURL picks the best link to share: Spotify, then YouTube, then Apple Music.
// fallback is returned when the track carries no link at all.
func (t Track) ShareURL(fallback string) string {
	switch {
	case t.Links.Spotify != "":
		return t.Links.Spotify
	case t.Links.YouTube != "":
		return t.Links.YouTube
	case t.Links.AppleMusic != "":
		return t.Links.AppleMusic
	}
	return fallback
}

// WithRecordedAt returns a copy of t stamped with the given instant.
func (t Track) WithRecordedAt(at time.Time) Track {
	stamp := at
	t.RecordedAt = &stamp
	return t
}

// RecordedTime returns RecordedAt or the zero time when absent.
func (t Track) RecordedTime() time.Time {
	if t.RecordedAt == nil {
		return time.Time{}
	}
	return *t.RecordedAt
}
