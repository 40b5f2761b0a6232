package arxiv

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoMoreResults is returned by SearchNext and SearchPrevious when there is
// no page in the requested direction.
var ErrNoMoreResults = errors.New("no more results")

// APIError is returned when the arXiv API answers with a non-200 status or
// with its error feed (a single entry titled "Error" whose id lives under
// http://arxiv.org/api/errors).
type APIError struct {
	StatusCode int    // HTTP status, 200 when the error came back inside a normal feed
	Message    string // Summary text from the error entry, or the raw body
	ErrorID    string // Error entry id, e.g. http://arxiv.org/api/errors#incorrect_id_format
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("arXiv API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("arXiv API error (status %d): %s", e.StatusCode, e.Message)
}

// Retryable reports whether the status code suggests a transient failure.
func (e *APIError) Retryable() bool {
	return transientStatus(e.StatusCode)
}

// IsAPIError reports whether err wraps an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// StatusCode returns the HTTP status carried by an *APIError in err's chain,
// or 0 if there is none.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// newStatusError builds an APIError for a non-200 response. arXiv returns
// its error feed on 400s, so the summary is preferred over the raw body.
func newStatusError(status int, body []byte) *APIError {
	if results, err := ParseResponse(bytes.NewReader(body)); err == nil {
		if apiErr := feedError(results); apiErr != nil {
			apiErr.StatusCode = status
			return apiErr
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

// feedError extracts the error entry from a parsed feed, if present. An
// error entry has its id under /api/errors and the title "Error"; a paper
// that is merely titled "Error" is a normal result.
func feedError(results SearchResults) *APIError {
	if len(results.Entries) != 1 {
		return nil
	}
	entry := results.Entries[0]
	if !strings.Contains(entry.ID, "/api/errors") || strings.TrimSpace(entry.Title) != "Error" {
		return nil
	}
	return &APIError{
		StatusCode: http.StatusOK,
		Message:    strings.TrimSpace(entry.Summary),
		ErrorID:    strings.TrimSpace(entry.ID),
	}
}
