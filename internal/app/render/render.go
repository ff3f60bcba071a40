// Package render serializes playlist log rows as CSV.
package render

import (
	"encoding/csv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/playlog/internal/domain/logsheet"
)

// CSV renders rows in the layout of f: a header row followed by one record
// per row, in input order. Lines end with CRLF.
func CSV(rows []logsheet.Row, f logsheet.Format) (string, error) {
	if !f.Valid() {
		return "", errors.Newf("unsupported format: %s", f)
	}

	var buf strings.Builder
	w := csv.NewWriter(&buf)
	w.UseCRLF = true

	if err := w.Write(f.Header()); err != nil {
		return "", errors.Wrap(err, "failed to write CSV header")
	}
	for i, row := range rows {
		if err := w.Write(f.Record(row)); err != nil {
			return "", errors.Wrapf(err, "failed to write CSV record %d", i+1)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", errors.Wrap(err, "CSV writer error")
	}
	return buf.String(), nil
}
