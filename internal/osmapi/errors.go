package osmapi

import (
	"errors"
	"fmt"
)

// API client errors.
var (
	// ErrAuthRejected is returned when the server rejects the supplied
	// credentials (HTTP 401). This is fatal: the run performs no sandbox
	// mutation after it.
	ErrAuthRejected = errors.New("server rejected the credentials")

	// ErrParsePayload is returned when a response body cannot be parsed
	// as the expected OSM XML document.
	ErrParsePayload = errors.New("failed to parse API response")

	// ErrBlocked is returned when the server answers HTTP 509: the client
	// has been blocked for downloading too much data.
	ErrBlocked = errors.New("blocked from the API for downloading too much data")
)

// APIError describes a non-success HTTP response from an OSM API server.
// It carries the endpoint and status code so fatal fetch failures can be
// reported with full context.
type APIError struct {
	// Endpoint is the request path relative to the API base URL.
	Endpoint string

	// StatusCode is the HTTP status code of the response.
	StatusCode int

	// Body is the (truncated) response body, which the OSM API uses for
	// human-readable error messages.
	Body string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Endpoint, e.StatusCode)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, statusCode int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == statusCode
}
