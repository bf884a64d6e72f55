package jobs

import (
	"sort"
	"strings"
)

// Sort orders.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Filter narrows a result table after it was fetched. Zero values disable
// a criterion.
type Filter struct {
	MinSalary     *float64
	MaxSalary     *float64
	Company       string
	JobType       string
	City          string
	State         string
	TitleKeywords string
}

// IsZero reports whether the filter has no criteria.
func (f Filter) IsZero() bool {
	return f.MinSalary == nil && f.MaxSalary == nil && f.Company == "" &&
		f.JobType == "" && f.City == "" && f.State == "" && f.TitleKeywords == ""
}

// Match reports whether a record satisfies every criterion. Salary bounds
// exclude records without a numeric amount.
func (f Filter) Match(r *Record) bool {
	if f.MinSalary != nil {
		v, ok := r.Number("min_amount")
		if !ok || v < *f.MinSalary {
			return false
		}
	}
	if f.MaxSalary != nil {
		v, ok := r.Number("max_amount")
		if !ok || v > *f.MaxSalary {
			return false
		}
	}
	if f.Company != "" && !containsFold(r.Text("company"), f.Company) {
		return false
	}
	if f.JobType != "" && r.Text("job_type") != f.JobType {
		return false
	}
	if f.City != "" && !containsFold(locationField(r, "city"), f.City) {
		return false
	}
	if f.State != "" && !containsFold(locationField(r, "state"), f.State) {
		return false
	}
	if f.TitleKeywords != "" && !containsFold(r.Text("title"), f.TitleKeywords) {
		return false
	}
	return true
}

// Apply returns a table holding only matching rows.
func (f Filter) Apply(t *Table) *Table {
	if f.IsZero() || t.Len() == 0 {
		return t
	}
	out := &Table{Columns: t.Columns, Rows: make([][]any, 0, len(t.Rows))}
	for i, row := range t.Rows {
		if f.Match(t.Record(i)) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Sort returns the table ordered by a column. An unknown column leaves the
// table unchanged. Order defaults to descending; nulls always sort last.
func Sort(t *Table, column, order string) *Table {
	if column == "" || t.Len() == 0 {
		return t
	}
	idx := columnIndex(t.Columns, column)
	if idx < 0 {
		return t
	}
	asc := strings.EqualFold(order, SortAsc)

	rows := make([][]any, len(t.Rows))
	copy(rows, t.Rows)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i][idx], rows[j][idx]
		if a == nil || b == nil {
			return a != nil
		}
		c := compare(a, b)
		if asc {
			return c < 0
		}
		return c > 0
	})
	return &Table{Columns: t.Columns, Rows: rows}
}

func compare(a, b any) int {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(FormatValue(a), FormatValue(b))
}

func columnIndex(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	for i, c := range columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// locationField reads a dedicated column when the scraper provides one and
// falls back to the combined location string.
func locationField(r *Record, name string) string {
	if _, ok := r.Lookup(name); ok {
		return r.Text(name)
	}
	return r.Text("location")
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
