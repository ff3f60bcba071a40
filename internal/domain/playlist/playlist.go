// Package playlist provides the Playlist domain entity.
package playlist

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/playlog/internal/domain/track"
)

// ErrInvalidURL is returned when input is not a Spotify playlist link.
var ErrInvalidURL = errors.New("must be a Spotify playlist URL like https://open.spotify.com/playlist/<id>")

var idPattern = regexp.MustCompile(`^[0-9A-Za-z]+$`)

// Playlist represents a Spotify playlist.
type Playlist struct {
	ID      string        // Spotify Playlist ID
	Name    string        // Playlist name (best effort)
	Tracks  []track.Track // Tracks in playlist order
	Skipped []int         // Positions of entries that are not tracks
}

// URL returns the Spotify URL of the playlist.
func (p *Playlist) URL() string {
	return URLFor(p.ID)
}

// TotalDuration returns the total duration of all tracks.
func (p *Playlist) TotalDuration() time.Duration {
	var total time.Duration
	for _, t := range p.Tracks {
		total += t.Duration
	}
	return total
}

// LocalCount returns the number of local-file tracks.
func (p *Playlist) LocalCount() int {
	n := 0
	for _, t := range p.Tracks {
		if t.IsLocal {
			n++
		}
	}
	return n
}

// URLFor returns the Spotify URL for a playlist ID.
func URLFor(id string) string {
	return fmt.Sprintf("https://open.spotify.com/playlist/%s", id)
}

// ParseID extracts the playlist ID from a Spotify playlist URL or URI.
// Accepted forms:
//
//	https://open.spotify.com/playlist/ID?si=...
//	https://open.spotify.com/intl-ja/playlist/ID
//	spotify:playlist:ID
func ParseID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrInvalidURL
	}

	if rest, ok := strings.CutPrefix(input, "spotify:playlist:"); ok {
		return checkID(rest)
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", errors.Mark(errors.Wrap(err, "parse playlist url"), ErrInvalidURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if !strings.EqualFold(u.Hostname(), "open.spotify.com") {
		return "", ErrInvalidURL
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	// optional locale prefix: /intl-xx/playlist/ID
	if len(segments) == 3 && strings.HasPrefix(segments[0], "intl-") {
		segments = segments[1:]
	}
	if len(segments) != 2 || segments[0] != "playlist" {
		return "", ErrInvalidURL
	}
	return checkID(segments[1])
}

func checkID(id string) (string, error) {
	if !idPattern.MatchString(id) {
		return "", ErrInvalidURL
	}
	return id, nil
}
