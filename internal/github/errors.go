package github

import (
	"errors"
	"net/http"

	"github.com/google/go-github/v81/github"
)

// StatusCode returns the HTTP status carried by a GitHub API error, or 0 when
// err did not come from an API response.
func StatusCode(err error) int {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return errResp.Response.StatusCode
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) && rateErr.Response != nil {
		return rateErr.Response.StatusCode
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) && abuseErr.Response != nil {
		return abuseErr.Response.StatusCode
	}
	return 0
}

// IsNotAvailable reports whether err means the feature or resource is not
// reachable for this repository: not found, or forbidden because it is not
// enabled or not licensed.
func IsNotAvailable(err error) bool {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return false
	}
	switch StatusCode(err) {
	case http.StatusNotFound, http.StatusForbidden:
		return true
	default:
		return false
	}
}
