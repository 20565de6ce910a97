package fetcher

import (
	"errors"
	"fmt"

	"github.com/nao1215/wikiexport/internal/model"
)

var (
	// ErrUnexpectedStatus is wrapped by SkipError for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected http status")

	// ErrNotHTML is wrapped by SkipError for non-HTML responses.
	ErrNotHTML = errors.New("response is not html")

	// ErrBodyTooLarge is wrapped by SkipError when the body exceeds the limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrInvalidProxy is returned by New for a proxy URL it cannot use.
	ErrInvalidProxy = errors.New("invalid proxy url")

	// ErrRedirectOutOfScope is wrapped by SkipError when a redirect leaves
	// the origin or crawl scope of the requested page.
	ErrRedirectOutOfScope = errors.New("redirect out of scope")
)

// SkipError reports that a URL should be skipped. The crawl continues.
type SkipError struct {
	// Outcome classifies the skip.
	Outcome model.Outcome

	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// ContentType is the response Content-Type, if any.
	ContentType string

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *SkipError) Error() string {
	return fmt.Sprintf("skip %s (%s): %v", e.URL, e.Outcome, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SkipError) Unwrap() error {
	return e.Err
}

// AsSkip extracts a *SkipError from err.
func AsSkip(err error) (*SkipError, bool) {
	var skip *SkipError
	if errors.As(err, &skip) {
		return skip, true
	}
	return nil, false
}
