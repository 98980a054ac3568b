package fetcher

import (
	"errors"
	"net/http"
)

// ErrTooManyRedirects is returned when the redirect hop limit is exceeded.
var ErrTooManyRedirects = errors.New("too many redirects")

// RedirectPolicy returns a CheckRedirect function that follows redirects until
// the number of redirects reaches maxHops, then returns ErrTooManyRedirects.
// When maxHops is <= 0 the default http client limit applies.
func RedirectPolicy(maxHops int) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if maxHops > 0 && len(via) >= maxHops {
			return ErrTooManyRedirects
		}
		return nil
	}
}
