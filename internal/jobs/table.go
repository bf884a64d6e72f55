package jobs

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Table is the scraper's result set: named columns and positional rows.
// A nil *Table is treated as empty everywhere.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// NewTable builds a table from records. Columns are the union of record
// fields in first-seen order; missing values are null.
func NewTable(records []*Record) *Table {
	t := &Table{Columns: []string{}, Rows: make([][]any, 0, len(records))}
	index := make(map[string]int)
	for _, rec := range records {
		for _, k := range rec.keys {
			if _, ok := index[k]; !ok {
				index[k] = len(t.Columns)
				t.Columns = append(t.Columns, k)
			}
		}
	}
	for _, rec := range records {
		row := make([]any, len(t.Columns))
		for k, v := range rec.values {
			row[index[k]] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Record returns row i as a record.
func (t *Table) Record(i int) *Record {
	rec := &Record{keys: make([]string, 0, len(t.Columns)), values: make(map[string]any, len(t.Columns))}
	row := t.Rows[i]
	for c, name := range t.Columns {
		var v any
		if c < len(row) {
			v = row[c]
		}
		rec.Set(name, v)
	}
	return rec
}

// Records returns every row as a record.
func (t *Table) Records() []*Record {
	if t == nil {
		return []*Record{}
	}
	out := make([]*Record, len(t.Rows))
	for i := range t.Rows {
		out[i] = t.Record(i)
	}
	return out
}

// Slice returns rows [start, end) sharing the column list.
func (t *Table) Slice(start, end int) *Table {
	if t == nil {
		return &Table{Columns: []string{}, Rows: [][]any{}}
	}
	if start < 0 {
		start = 0
	}
	if end > len(t.Rows) {
		end = len(t.Rows)
	}
	if start > end {
		start = end
	}
	return &Table{Columns: t.Columns, Rows: t.Rows[start:end]}
}

// Validate checks every row has one value per column.
func (t *Table) Validate() error {
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d values for %d columns", i, len(row), len(t.Columns))
		}
	}
	return nil
}

// Encode serializes the table for storage.
func Encode(t *Table) ([]byte, error) {
	if t == nil {
		t = &Table{}
	}
	if t.Columns == nil || t.Rows == nil {
		cp := *t
		if cp.Columns == nil {
			cp.Columns = []string{}
		}
		if cp.Rows == nil {
			cp.Rows = [][]any{}
		}
		t = &cp
	}
	return json.Marshal(t)
}

// Decode parses a table produced by Encode. Numbers keep their literal form.
func Decode(data []byte) (*Table, error) {
	var raw struct {
		Columns []string          `json:"columns"`
		Rows    []json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode table: %w", err)
	}

	t := &Table{Columns: raw.Columns, Rows: make([][]any, 0, len(raw.Rows))}
	if t.Columns == nil {
		t.Columns = []string{}
	}
	for i, r := range raw.Rows {
		row, err := decodeRow(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decode row %d: %w", i, err)
		}
		t.Rows = append(t.Rows, row)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func decodeRow(data []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var row []any
	if err := dec.Decode(&row); err != nil {
		return nil, err
	}
	return row, nil
}
