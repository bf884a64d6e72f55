package response

import (
	"net/http"

	"github.com/psyjobs/jobspy-api/internal/jobs"
	"github.com/psyjobs/jobspy-api/internal/search"
)

// Listing is the non-paginated JSON body.
type Listing struct {
	Count  int            `json:"count"`
	Jobs   []*jobs.Record `json:"jobs"`
	Cached bool           `json:"cached"`
}

// PagedListing is the paginated JSON body.
type PagedListing struct {
	Count        int            `json:"count"`
	TotalPages   int            `json:"total_pages"`
	CurrentPage  int            `json:"current_page"`
	PageSize     int            `json:"page_size"`
	Jobs         []*jobs.Record `json:"jobs"`
	Cached       bool           `json:"cached"`
	NextPage     *string        `json:"next_page"`
	PreviousPage *string        `json:"previous_page"`
}

// Response is a shaped search result ready to write.
type Response struct {
	Format string
	// Table holds the rows sent to the client, after windowing.
	Table *jobs.Table
	// Body is the JSON payload; CSV responses ignore it.
	Body any
}

// Shape builds the response for a search. count in a paginated body is the
// total across all pages. links may be nil.
func Shape(out *search.Outcome, links PageLinker) (*Response, error) {
	table := out.Table
	p := out.Query.Pagination

	if !p.Enabled {
		return &Response{
			Format: out.Query.Format,
			Table:  table,
			Body: Listing{
				Count:  table.Len(),
				Jobs:   table.Records(),
				Cached: out.Cached,
			},
		}, nil
	}

	window, total, err := Window(table, p.Page, p.PageSize)
	if err != nil {
		return nil, err
	}

	body := PagedListing{
		Count:       table.Len(),
		TotalPages:  total,
		CurrentPage: p.Page,
		PageSize:    p.PageSize,
		Jobs:        window.Records(),
		Cached:      out.Cached,
	}
	if p.Page < total {
		body.NextPage = links.link(p.Page + 1)
	}
	if p.Page > 1 {
		body.PreviousPage = links.link(p.Page - 1)
	}

	return &Response{Format: out.Query.Format, Table: window, Body: body}, nil
}

// Write sends the response with status 200.
func (r *Response) Write(w http.ResponseWriter) error {
	var (
		data []byte
		err  error
	)
	if r.Format == search.FormatCSV {
		data, err = EncodeCSV(r.Table)
		if err != nil {
			return err
		}
		w.Header().Set("Content-Type", ContentTypeCSV)
		w.Header().Set("Content-Disposition", "attachment; filename="+CSVFilename)
	} else {
		data, err = EncodeJSON(r.Body)
		if err != nil {
			return err
		}
		w.Header().Set("Content-Type", ContentTypeJSON)
	}
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(data)
	return err
}
