package early

import (
	"fmt"
	"io"
	"net/http"
)

// ConfigurationError reports missing or unusable credentials.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "early configuration error: " + e.Reason
}

// AuthenticationError reports a rejected sign-in. It is fatal for the
// lifetime of the Session that produced it.
type AuthenticationError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *AuthenticationError) Error() string {
	if e.Status == "" {
		return "early sign-in failed: " + e.Body
	}
	return fmt.Sprintf("early sign-in failed [%s]: %s", e.Status, e.Body)
}

// RequestError is a non-2xx response from an authenticated API call.
// Status and body are kept as the remote service sent them.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("early API error [%s] %s %s: %s", e.Status, e.Method, e.Path, e.Body)
}

func newRequestError(method, path string, resp *http.Response) *RequestError {
	body, _ := io.ReadAll(resp.Body)
	return &RequestError{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
}
