package response

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psyjobs/jobspy-api/internal/jobs"
)

func numberedTable(n int) *jobs.Table {
	records := make([]*jobs.Record, n)
	for i := range records {
		r := jobs.NewRecord()
		r.Set("title", fmt.Sprintf("job %d", i+1))
		r.Set("company", "Acme")
		records[i] = r
	}
	return jobs.NewTable(records)
}

func TestTotalPages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		count, size, want int
	}{
		{0, 10, 1},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
		{100, 1, 100},
		{5, 0, 5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_by_%d", tt.count, tt.size), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, TotalPages(tt.count, tt.size))
		})
	}
}

func TestWindow(t *testing.T) {
	t.Parallel()

	table := numberedTable(25)

	tests := []struct {
		name      string
		page      int
		wantLen   int
		wantFirst string
	}{
		{name: "first page", page: 1, wantLen: 10, wantFirst: "job 1"},
		{name: "middle page", page: 2, wantLen: 10, wantFirst: "job 11"},
		{name: "last partial page", page: 3, wantLen: 5, wantFirst: "job 21"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			window, total, err := Window(table, tt.page, 10)
			require.NoError(t, err)
			assert.Equal(t, 3, total)
			require.Equal(t, tt.wantLen, window.Len())
			assert.Equal(t, tt.wantFirst, window.Record(0).Text("title"))
		})
	}
}

func TestWindow_PageOutOfRange(t *testing.T) {
	t.Parallel()

	_, total, err := Window(numberedTable(25), 4, 10)
	require.Error(t, err)
	assert.Equal(t, 3, total)

	var pe *PageError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Page 4 not found", pe.Error())
	assert.Equal(t, PageNotFound{
		Error:      "Page 4 not found",
		TotalPages: 3,
		Suggestion: "Use a page number between 1 and 3",
	}, pe.Detail())
}

func TestWindow_Empty(t *testing.T) {
	t.Parallel()

	window, total, err := Window(jobs.NewTable(nil), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 0, window.Len())

	_, _, err = Window(jobs.NewTable(nil), 2, 10)
	assert.Error(t, err)
}
