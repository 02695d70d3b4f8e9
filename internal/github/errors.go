package github

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned on a 404: unknown owner, repository, or no release.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited is returned on 403 and 429 responses.
	ErrRateLimited = errors.New("rate limited")
	// ErrMalformed is returned when a success response can't be decoded.
	ErrMalformed = errors.New("malformed response")
)

// StatusError is a non-success response that is neither not-found nor rate limiting.
type StatusError struct {
	StatusCode int
	URL        string
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Status)
}
