package response

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/psyjobs/jobspy-api/internal/jobs"
)

// Content types.
const (
	ContentTypeJSON = "application/json; charset=utf-8"
	ContentTypeCSV  = "text/csv; charset=utf-8"
)

// CSVFilename is offered to the client for CSV downloads.
const CSVFilename = "jobs.csv"

// NoResults is the only CSV row written for an empty result.
const NoResults = "No results"

// ErrEncodingFailed wraps every encoder failure.
var ErrEncodingFailed = errors.New("encoding failed")

// EncodeJSON renders v without HTML escaping and without a trailing newline.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodingFailed, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// EncodeCSV renders the table with a header row. Nested values are written
// as JSON text.
func EncodeCSV(t *jobs.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if t.Len() == 0 {
		if err := w.Write([]string{NoResults}); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncodingFailed, err)
		}
		w.Flush()
		return buf.Bytes(), w.Error()
	}

	header := t.Record(0).Keys()
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodingFailed, err)
	}

	line := make([]string, len(header))
	for i := 0; i < t.Len(); i++ {
		rec := t.Record(i)
		for c, name := range header {
			line[c] = rec.Text(name)
		}
		if err := w.Write(line); err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrEncodingFailed, i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodingFailed, err)
	}
	return buf.Bytes(), nil
}
