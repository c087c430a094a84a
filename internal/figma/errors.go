package figma

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrNoCanvas = errors.New("figma: document has no canvas")

// APIError is a non-2xx response from the REST API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("figma: unexpected status %d %s: %s", e.Status, http.StatusText(e.Status), e.Body)
}

// PermanentError marks a failure that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// classify wraps client errors except 429 as permanent.
func classify(status int, body []byte) error {
	const max = 2048
	if len(body) > max {
		body = body[:max]
	}
	err := &APIError{Status: status, Body: string(body)}
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return NewPermanentError(err)
	}
	return err
}
