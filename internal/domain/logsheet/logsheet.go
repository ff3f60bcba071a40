// Package logsheet describes the playlist log formats accepted by the
// station's playlist editors.
package logsheet

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Format selects one of the station's CSV import formats.
type Format int

const (
	// NewEditor is the current playlist editor format.
	NewEditor Format = iota + 1
	// OldEditor is the legacy playlist editor format. Every row carries the
	// show title and air date.
	OldEditor
)

// ShowDateLayout is how the old editor expects the air date.
const ShowDateLayout = "01/02/06"

var newEditorColumns = []string{
	"title",
	"duration",
	"performer",
	"album",
	"year",
	"label",
	"composer",
	"notes",
}

var oldEditorColumns = []string{
	"show_title",
	"show_date",
	"title",
	"title_url",
	"duration",
	"performer",
	"performer_url",
	"album",
	"album_url",
	"released",
	"label",
	"composer",
	"composer_url",
	"notes",
}

// ParseFormat parses "new" or "old".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "new":
		return NewEditor, nil
	case "old":
		return OldEditor, nil
	default:
		return 0, errors.Newf("invalid format %q (expected \"new\" or \"old\")", s)
	}
}

// String returns the name used on the wire.
func (f Format) String() string {
	switch f {
	case NewEditor:
		return "new"
	case OldEditor:
		return "old"
	default:
		return "unknown"
	}
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	return f == NewEditor || f == OldEditor
}

// RequiresShow reports whether rows carry show title and date.
func (f Format) RequiresShow() bool {
	return f == OldEditor
}

// Header returns the CSV header row.
func (f Format) Header() []string {
	var cols []string
	switch f {
	case OldEditor:
		cols = oldEditorColumns
	default:
		cols = newEditorColumns
	}
	out := make([]string, len(cols))
	copy(out, cols)
	return out
}

// Record lays row out in the column order of f.
func (f Format) Record(row Row) []string {
	if f == OldEditor {
		return []string{
			row.ShowTitle,
			row.ShowDate,
			row.Title,
			"", // title_url
			row.Duration,
			row.Performer,
			"", // performer_url
			row.Album,
			"", // album_url
			row.Year,
			row.Label,
			row.Composer,
			"", // composer_url
			row.Notes,
		}
	}
	return []string{
		row.Title,
		row.Duration,
		row.Performer,
		row.Album,
		row.Year,
		row.Label,
		row.Composer,
		row.Notes,
	}
}

// Row is one playlist log entry. Fields not used by a format are ignored
// when the row is laid out.
type Row struct {
	Title     string
	Duration  string
	Performer string
	Album     string
	Year      string
	Label     string
	Composer  string
	Notes     string
	ShowTitle string
	ShowDate  string
}

// Show identifies the broadcast a playlist log belongs to.
type Show struct {
	Title string
	Date  time.Time
}

// FormattedDate returns the air date in ShowDateLayout, or an empty string
// when no date is set.
func (s Show) FormattedDate() string {
	if s.Date.IsZero() {
		return ""
	}
	return s.Date.Format(ShowDateLayout)
}
