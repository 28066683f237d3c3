package models

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is shared across requests; validator caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// ScreenerRequest identifies the screener report to extract.
type ScreenerRequest struct {
	// URL is the report page. Required. Must start with the configured
	// report prefix (e.g. "https://chartink.com/screener/").
	URL string `validate:"required,http_url"`
}

// NewScreenerRequest trims rawURL and validates it against prefix.
func NewScreenerRequest(rawURL, prefix string) (ScreenerRequest, error) {
	req := ScreenerRequest{URL: strings.TrimSpace(rawURL)}
	if err := req.Validate(prefix); err != nil {
		return ScreenerRequest{}, err
	}
	return req, nil
}

// Validate checks the URL shape and the report prefix. It never performs
// network I/O.
func (r ScreenerRequest) Validate(prefix string) error {
	if err := validate.Struct(r); err != nil {
		return NewPipelineError(ErrCodeInvalidRequest,
			fmt.Sprintf("invalid screener URL %q", r.URL), err)
	}
	if prefix != "" && !strings.HasPrefix(r.URL, prefix) {
		return NewPipelineError(ErrCodeInvalidRequest,
			fmt.Sprintf("screener URL %q must start with %s", r.URL, prefix), nil)
	}
	return nil
}
