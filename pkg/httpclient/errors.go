package httpclient

import (
	"fmt"
	"strings"
)

const maxSnippetBytes = 512

// StatusError is returned when a response status is rejected by ValidateStatus.
// The response is still available to callers that need the body.
type StatusError struct {
	Method   string
	URL      string
	Response Response
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: response status %d: %s", e.Method, e.URL, e.Response.StatusCode(), BodySnippet(e.Response.Body()))
}

// StatusCode returns the rejected status.
func (e *StatusError) StatusCode() int {
	if e == nil || e.Response == nil {
		return 0
	}
	return e.Response.StatusCode()
}

// BodySnippet trims a response body for error messages.
func BodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxSnippetBytes {
		return s[:maxSnippetBytes] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
