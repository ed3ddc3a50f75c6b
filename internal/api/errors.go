package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized is matched by any *Error with status 401. The client has
	// already cleared the session when it is returned.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNetwork wraps transport failures: refused connections, DNS errors,
	// timeouts. No HTTP status was received.
	ErrNetwork = errors.New("network error")

	// ErrEmptyCredentials is returned before any request when a username or
	// password is blank.
	ErrEmptyCredentials = errors.New("username and password are required")
)

// Error is a non-2xx response from the API.
type Error struct {
	Status  int
	Message string // server-supplied message, may be empty
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
	}
	return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
}

// Is lets errors.Is(err, ErrUnauthorized) match a 401 response.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// ServerMessage returns the message the API attached to err, if any.
func ServerMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// decodeMessage extracts "message" from an error body. The API reports
// validation failures as an array of strings.
func decodeMessage(body []byte) string {
	var envelope struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Message) == 0 {
		return ""
	}

	var single string
	if err := json.Unmarshal(envelope.Message, &single); err == nil {
		return strings.TrimSpace(single)
	}
	var many []string
	if err := json.Unmarshal(envelope.Message, &many); err == nil {
		return strings.Join(many, "; ")
	}
	return ""
}
