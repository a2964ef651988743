package tarantula

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// FetchRequest describes a single page fetch.
type FetchRequest struct {
	URL       *url.URL
	UserAgent string

	// MaximumRedirects caps the redirect hops followed for this fetch.
	MaximumRedirects int

	// IgnoreRedirects fails the fetch on the first redirect response.
	IgnoreRedirects bool
}

// FetchResult is the outcome of a fetch that received an HTTP response.
// Any received response, error statuses included, produces a FetchResult;
// transport-level failures produce a FetchError instead.
type FetchResult struct {
	FinalURL   *url.URL
	StatusCode int
	Header     http.Header
	Body       string
	Redirects  []Redirect
	Duration   time.Duration
}

// OK reports whether the final response had a 2xx status.
func (r *FetchResult) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// FetchError is a classified transport-level fetch failure.
type FetchError struct {
	// Status is one of StatusTimeout, StatusConnectionError,
	// StatusRedirectLimit.
	Status PageStatus
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Status)
}

// Unwrap returns the underlying transport error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// ClassifyFetchError maps a fetch error to its PageStatus. Unclassified
// errors count as connection errors.
func ClassifyFetchError(err error) PageStatus {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Status
	}
	return StatusConnectionError
}

// Fetcher retrieves a single page over the network, following redirects up
// to the request's cap. Failures are classified, never fatal to the run.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error)
}
