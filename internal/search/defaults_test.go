package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psyjobs/jobspy-api/internal/config"
)

func testDefaults() Defaults {
	return NewDefaults(config.SearchDefaults{
		SiteNames:         []string{"Indeed", "linkedin"},
		ResultsWanted:     20,
		Distance:          50,
		DescriptionFormat: "markdown",
		CountryIndeed:     "USA",
		Proxies:           []string{"proxy-a:8080"},
		CACertPath:        "/etc/ssl/ca.pem",
	})
}

func mustQuery(t *testing.T, raw RawRequest) *Query {
	t.Helper()
	q, err := Validate(&raw)
	require.NoError(t, err)
	return q
}

func TestDefaults_Apply(t *testing.T) {
	t.Parallel()

	p := testDefaults().Apply(mustQuery(t, RawRequest{SearchTerm: ptr("golang")}))

	assert.Equal(t, []string{"indeed", "linkedin"}, p.SiteName)
	assert.Equal(t, "golang", p.SearchTerm)
	assert.Equal(t, 50, p.Distance)
	assert.Equal(t, 20, p.ResultsWanted)
	assert.Equal(t, "markdown", p.DescriptionFormat)
	assert.Equal(t, "USA", p.CountryIndeed)
	assert.Equal(t, []string{"proxy-a:8080"}, p.Proxies)
	assert.Equal(t, "/etc/ssl/ca.pem", p.CACert)
	assert.Equal(t, DefaultVerbose, p.Verbose)
	assert.Nil(t, p.IsRemote)
	assert.Nil(t, p.HoursOld)
}

func TestDefaults_ApplyExplicitValuesWin(t *testing.T) {
	t.Parallel()

	p := testDefaults().Apply(mustQuery(t, RawRequest{
		SiteName:          []string{"google"},
		Distance:          ptr(0),
		ResultsWanted:     ptr(0),
		Verbose:           ptr(0),
		IsRemote:          ptr(false),
		DescriptionFormat: ptr("html"),
		Proxies:           []string{"proxy-b:3128"},
	}))

	assert.Equal(t, []string{"google"}, p.SiteName)
	assert.Equal(t, 0, p.Distance)
	assert.Equal(t, 0, p.ResultsWanted)
	assert.Equal(t, 0, p.Verbose)
	require.NotNil(t, p.IsRemote)
	assert.False(t, *p.IsRemote)
	assert.Equal(t, "html", p.DescriptionFormat)
	assert.Equal(t, []string{"proxy-b:3128"}, p.Proxies)
}

func TestDefaults_ApplyWithoutConfiguredSites(t *testing.T) {
	t.Parallel()

	p := Defaults{}.Apply(mustQuery(t, RawRequest{}))
	assert.Equal(t, Sites, p.SiteName)
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	d := testDefaults()
	fingerprint := func(raw RawRequest) string {
		fp, err := Fingerprint(d.Apply(mustQuery(t, raw)))
		require.NoError(t, err)
		return fp
	}

	base := fingerprint(RawRequest{SiteName: []string{"linkedin", "google"}, SearchTerm: ptr("go")})
	assert.Len(t, base, 64)

	tests := []struct {
		name string
		raw  RawRequest
		same bool
	}{
		{
			name: "site order is irrelevant",
			raw:  RawRequest{SiteName: []string{"google", "linkedin"}, SearchTerm: ptr("go")},
			same: true,
		},
		{
			name: "site case and duplicates are irrelevant",
			raw:  RawRequest{SiteName: []string{"Google", "linkedin", "google"}, SearchTerm: ptr("go")},
			same: true,
		},
		{
			name: "explicit default equals omitted",
			raw:  RawRequest{SiteName: []string{"linkedin", "google"}, SearchTerm: ptr("go"), Distance: ptr(50)},
			same: true,
		},
		{
			name: "presentation parameters are irrelevant",
			raw: RawRequest{
				SiteName: []string{"linkedin", "google"}, SearchTerm: ptr("go"),
				Paginate: ptr(true), Page: ptr(3), Format: ptr("csv"), City: ptr("Austin"),
			},
			same: true,
		},
		{
			name: "explicit zero differs",
			raw:  RawRequest{SiteName: []string{"linkedin", "google"}, SearchTerm: ptr("go"), Distance: ptr(0)},
		},
		{
			name: "different term differs",
			raw:  RawRequest{SiteName: []string{"linkedin", "google"}, SearchTerm: ptr("rust")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := fingerprint(tt.raw)
			if tt.same {
				assert.Equal(t, base, got)
			} else {
				assert.NotEqual(t, base, got)
			}
		})
	}
}

func TestFingerprint_CompanyIDsAreASet(t *testing.T) {
	t.Parallel()

	a, err := Fingerprint(Parameters{SiteName: []string{"linkedin"}, LinkedinCompanyIDs: []int{3, 1, 3}})
	require.NoError(t, err)
	b, err := Fingerprint(Parameters{SiteName: []string{"linkedin"}, LinkedinCompanyIDs: []int{1, 3}})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
