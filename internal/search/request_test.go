package search

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindQuery(t *testing.T) {
	t.Parallel()

	values, err := url.ParseQuery("site_name=indeed,linkedin&site_name=google&search_term=go+dev" +
		"&distance=25&hours_old=24&is_remote=false&linkedin_company_ids=1,2&paginate=true&page=2" +
		"&page_size=5&format=csv&min_salary=50000&company=acme&sort_by=min_amount&unknown=1")
	require.NoError(t, err)

	r := BindQuery(values)

	assert.Equal(t, []string{"indeed", "linkedin", "google"}, r.SiteName)
	require.NotNil(t, r.SearchTerm)
	assert.Equal(t, "go dev", *r.SearchTerm)
	assert.Equal(t, 25, *r.Distance)
	assert.Equal(t, 24, *r.HoursOld)
	require.NotNil(t, r.IsRemote)
	assert.False(t, *r.IsRemote)
	assert.Equal(t, []int{1, 2}, r.LinkedinCompanyIDs)
	assert.True(t, *r.Paginate)
	assert.Equal(t, 2, *r.Page)
	assert.Equal(t, 5, *r.PageSize)
	assert.Equal(t, "csv", *r.Format)
	assert.Equal(t, 50000.0, *r.MinSalary)
	assert.Equal(t, "acme", *r.Company)
	assert.Equal(t, "min_amount", *r.SortBy)
	assert.Empty(t, r.bindErrors)
	assert.Nil(t, r.EasyApply)
}

func TestBindQuery_CoercionFailures(t *testing.T) {
	t.Parallel()

	values, err := url.ParseQuery("distance=abc&is_remote=maybe&paginate=sure&linkedin_company_ids=7,x")
	require.NoError(t, err)

	r := BindQuery(values)

	assert.Nil(t, r.Distance)
	assert.Nil(t, r.IsRemote)
	assert.Equal(t, []int{7}, r.LinkedinCompanyIDs)
	require.Len(t, r.bindErrors, 4)

	byParam := map[string]Suggestion{}
	for _, s := range r.bindErrors {
		byParam[s.Parameter] = s
	}
	assert.Equal(t, "'abc' is not a valid integer", byParam["distance"].Message)
	assert.Equal(t, "integer", byParam["distance"].ExpectedType)
	assert.Equal(t, "'maybe' is not a valid boolean", byParam["is_remote"].Message)
	assert.Equal(t, "'sure' is not a valid value for paginate", byParam["paginate"].Message)
	assert.Equal(t, "'x' is not a valid list of integers", byParam["linkedin_company_ids"].Message)
}

func TestBindQuery_BlankValuesAreOmitted(t *testing.T) {
	t.Parallel()

	values, err := url.ParseQuery("site_name=&country_indeed=&distance=")
	require.NoError(t, err)

	r := BindQuery(values)
	assert.Empty(t, r.SiteName)
	assert.Nil(t, r.CountryIndeed)
	assert.Nil(t, r.Distance)
	assert.Empty(t, r.bindErrors)
}

func TestBindJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, r *RawRequest)
	}{
		{
			name: "string site",
			body: `{"site_name":"indeed","country_indeed":"USA","hours_old":24}`,
			check: func(t *testing.T, r *RawRequest) {
				assert.Equal(t, []string{"indeed"}, r.SiteName)
				assert.Equal(t, "USA", *r.CountryIndeed)
				assert.Equal(t, 24, *r.HoursOld)
			},
		},
		{
			name: "list site and booleans",
			body: `{"site_name":["linkedin","google"],"easy_apply":false,"paginate":true,"page_size":20}`,
			check: func(t *testing.T, r *RawRequest) {
				assert.Equal(t, []string{"linkedin", "google"}, r.SiteName)
				require.NotNil(t, r.EasyApply)
				assert.False(t, *r.EasyApply)
				assert.True(t, *r.Paginate)
				assert.Equal(t, 20, *r.PageSize)
			},
		},
		{
			name: "null means omitted",
			body: `{"hours_old":null,"job_type":null}`,
			check: func(t *testing.T, r *RawRequest) {
				assert.Nil(t, r.HoursOld)
				assert.Nil(t, r.JobType)
			},
		},
		{
			name: "mistyped values become suggestions",
			body: `{"distance":12.5,"is_remote":{"a":1},"extra":{"ignored":true}}`,
			check: func(t *testing.T, r *RawRequest) {
				assert.Nil(t, r.Distance)
				assert.Len(t, r.bindErrors, 2)
			},
		},
		{
			name: "empty body",
			body: ``,
			check: func(t *testing.T, r *RawRequest) {
				assert.Empty(t, r.SiteName)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, err := BindJSON(strings.NewReader(tt.body))
			require.NoError(t, err)
			tt.check(t, r)
		})
	}
}

func TestBindJSON_Malformed(t *testing.T) {
	t.Parallel()

	for _, body := range []string{`{"site_name":`, `[1,2]`, `"indeed"`} {
		_, err := BindJSON(strings.NewReader(body))
		assert.True(t, errors.Is(err, ErrInvalidBody), body)
	}
}
