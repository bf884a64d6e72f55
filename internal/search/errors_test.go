package search

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "proxy", err: errors.New("Proxy connection refused"), want: HintProxy},
		{name: "timeout", err: errors.New("read TIMEOUT after 30s"), want: HintTimeout},
		{name: "captcha", err: errors.New("blocked by Captcha"), want: HintCaptcha},
		{name: "first rule wins", err: errors.New("proxy timeout"), want: HintProxy},
		{name: "wrapped", err: fmt.Errorf("scrape: %w", errors.New("captcha")), want: HintCaptcha},
		{name: "other", err: errors.New("boom"), want: HintDefault},
		{name: "nil", err: nil, want: HintDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Hint(tt.err))
		})
	}
}

func TestScrapeError_Payload(t *testing.T) {
	t.Parallel()

	cause := errors.New("scrape timeout after 5s")
	err := error(&ScrapeError{Err: cause, Hint: Hint(cause)})

	assert.ErrorIs(t, err, cause)
	assert.False(t, IsValidation(err))

	var se *ScrapeError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, ScrapeFailure{
		Error:      "Error scraping jobs",
		Message:    "scrape timeout after 5s",
		Suggestion: HintTimeout,
	}, se.Payload())
}

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Missing required parameter: x", (&ValidationError{Title: TitleMissingParameter, Message: "x"}).Error())
	assert.Equal(t, "Invalid country_indeed value", (&ValidationError{Title: TitleInvalidCountry}).Error())
}
