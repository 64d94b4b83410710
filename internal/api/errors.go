package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionExpired is returned when a token refresh fails and the
// session cannot be recovered. The stored tokens have already been
// cleared and the session-expired hook invoked by the time a caller
// sees this error.
var ErrSessionExpired = errors.New("session expired")

// APIError represents a non-2xx response from the Kompanion API, or a
// 2xx response whose envelope reported failure. Message is the
// server-provided error text, passed through unmodified.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// ServerMessage returns the server-provided error text, "" when the
// response carried none
func (e *APIError) ServerMessage() string {
	return e.Message
}

// IsNotFound checks if an error is a 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if an error is a 401
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsForbidden checks if an error is a 403
func IsForbidden(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden
}

// IsBadRequest checks if an error is a 400
func IsBadRequest(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest
}

// ErrorMessage extracts the server-provided message from an error, or
// falls back to the error text
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// friendlyMessage maps a status code to a user-facing notification text
func friendlyMessage(statusCode int, serverMessage string) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "Invalid request. Please check your input."
	case http.StatusNotFound:
		return "Resource not found."
	case http.StatusInternalServerError:
		return "Server error. Please try again later."
	case http.StatusServiceUnavailable:
		return "Service unavailable. Please try again later."
	default:
		if serverMessage != "" {
			return serverMessage
		}
		return "Something went wrong. Please try again."
	}
}
