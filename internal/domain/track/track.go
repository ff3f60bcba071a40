// Package track provides the Track domain entity.
package track

import (
	"fmt"
	"time"
)

// Track represents one playlist entry as reported by the catalog.
// Local files carry whatever the owner's library supplied, which is
// usually just a title and sometimes an artist.
type Track struct {
	Position    int           // 1-based position in the playlist
	ID          string        // Spotify Track ID (empty for local files)
	Title       string        // Track name
	Artists     []string      // Artist names, primary artist first
	Album       string        // Album name
	Label       string        // Record label (empty if unknown)
	ReleaseYear int           // Release year (0 if unknown)
	Duration    time.Duration // Track duration
	IsLocal     bool          // Imported from the owner's local library
	URL         string        // Spotify URL
}

// PrimaryArtist returns the first artist, or an empty string.
func (t *Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// HasMetadata reports whether the catalog knows anything about the track
// beyond its title.
func (t *Track) HasMetadata() bool {
	return !t.IsLocal || len(t.Artists) > 0
}

// HasReleaseYear reports whether ReleaseYear is a 4-digit year.
func (t *Track) HasReleaseYear() bool {
	return t.ReleaseYear >= 1000 && t.ReleaseYear <= 9999
}

// FormatDuration formats d as MM:SS, truncating any sub-second remainder.
// Minutes are not wrapped into hours.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
