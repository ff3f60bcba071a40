// Package mapper converts catalog tracks into playlist log rows.
package mapper

import (
	"strconv"

	"github.com/osa030/playlog/internal/domain/logsheet"
	"github.com/osa030/playlog/internal/domain/track"
)

// Mapper maps tracks for one conversion. It holds no mutable state.
type Mapper struct {
	format logsheet.Format
	show   logsheet.Show
	rules  []Rule
}

// New creates a mapper for the given format. show is only used by formats
// that carry show information.
func New(f logsheet.Format, show logsheet.Show) *Mapper {
	var rules []Rule
	for _, r := range defaultRules {
		if r.AppliesTo(f) {
			rules = append(rules, r)
		}
	}
	return &Mapper{
		format: f,
		show:   show,
		rules:  rules,
	}
}

// Format returns the output format.
func (m *Mapper) Format() logsheet.Format {
	return m.format
}

// Map converts t into a row. index is the 1-based playlist position used in
// warning text.
func (m *Mapper) Map(t track.Track, index int) (logsheet.Row, []string) {
	row := logsheet.Row{
		Title:     t.Title,
		Duration:  track.FormatDuration(t.Duration),
		Performer: t.PrimaryArtist(),
	}

	// Local files without metadata leave every optional field blank.
	if t.HasMetadata() {
		row.Album = t.Album
		row.Label = t.Label
		if t.HasReleaseYear() {
			row.Year = strconv.Itoa(t.ReleaseYear)
		}
	}

	if m.format.RequiresShow() {
		row.ShowTitle = m.show.Title
		row.ShowDate = m.show.FormattedDate()
	}

	var warnings []string
	for _, r := range m.rules {
		warnings = append(warnings, r.Check(t, index)...)
	}
	return row, warnings
}
