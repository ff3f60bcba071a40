package render

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/playlog/internal/domain/logsheet"
)

func lines(body string) []string {
	return strings.Split(strings.TrimSuffix(body, "\r\n"), "\r\n")
}

func TestCSV_NewEditor(t *testing.T) {
	rows := []logsheet.Row{
		{Title: "Gold Soundz", Duration: "02:39", Performer: "Pavement", Album: "Crooked Rain, Crooked Rain", Year: "1994", Label: "Matador"},
		{Title: "Range Life", Duration: "04:54", Performer: "Pavement"},
	}

	body, err := CSV(rows, logsheet.NewEditor)
	require.NoError(t, err)

	expected := "title,duration,performer,album,year,label,composer,notes\r\n" +
		"Gold Soundz,02:39,Pavement,\"Crooked Rain, Crooked Rain\",1994,Matador,,\r\n" +
		"Range Life,04:54,Pavement,,,,,\r\n"
	assert.Equal(t, expected, body)
}

func TestCSV_OldEditor(t *testing.T) {
	rows := []logsheet.Row{
		{ShowTitle: "hot tub listening club", ShowDate: "03/07/25", Title: "Gold Soundz", Duration: "02:39", Performer: "Pavement"},
	}

	body, err := CSV(rows, logsheet.OldEditor)
	require.NoError(t, err)

	got := lines(body)
	require.Len(t, got, 2)
	assert.Equal(t, "show_title,show_date,title,title_url,duration,performer,performer_url,album,album_url,released,label,composer,composer_url,notes", got[0])
	assert.Equal(t, "hot tub listening club,03/07/25,Gold Soundz,,02:39,Pavement,,,,,,,,", got[1])
}

func TestCSV_Quoting(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		expected string
	}{
		{name: "quotes and comma", title: `Say "Hi", Bye`, expected: `"Say ""Hi"", Bye"`},
		{name: "comma only", title: "Crooked Rain, Crooked Rain", expected: `"Crooked Rain, Crooked Rain"`},
		// embedded newlines follow the file's CRLF convention
		{name: "line break", title: "two\nlines", expected: "\"two\r\nlines\""},
		{name: "plain", title: "Cut Your Hair", expected: "Cut Your Hair"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := CSV([]logsheet.Row{{Title: tt.title}}, logsheet.NewEditor)
			require.NoError(t, err)

			record := strings.TrimPrefix(body, "title,duration,performer,album,year,label,composer,notes\r\n")
			assert.True(t, strings.HasPrefix(record, tt.expected+","), "record %q should start with %q", record, tt.expected)

			// round trip through a reader to make sure the field survives intact
			r := csv.NewReader(strings.NewReader(body))
			all, err := r.ReadAll()
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, tt.title, all[1][0])
		})
	}
}

func TestCSV_PreservesOrderAndDuplicates(t *testing.T) {
	rows := []logsheet.Row{
		{Title: "b"},
		{Title: "a"},
		{Title: "b"},
	}

	body, err := CSV(rows, logsheet.NewEditor)
	require.NoError(t, err)

	got := lines(body)
	require.Len(t, got, 4)
	assert.True(t, strings.HasPrefix(got[1], "b,"))
	assert.True(t, strings.HasPrefix(got[2], "a,"))
	assert.True(t, strings.HasPrefix(got[3], "b,"))
}

func TestCSV_Empty(t *testing.T) {
	body, err := CSV(nil, logsheet.NewEditor)
	require.NoError(t, err)
	assert.Equal(t, "title,duration,performer,album,year,label,composer,notes\r\n", body)
}

func TestCSV_UnknownFormat(t *testing.T) {
	_, err := CSV(nil, logsheet.Format(0))
	assert.Error(t, err)
}
