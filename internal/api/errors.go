package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized matches (via errors.Is) any 401 answer from the API.
var ErrUnauthorized = errors.New("api: unauthorized")

// Error is a non-2xx answer from the API.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "api: " + http.StatusText(e.Status)
	}
	return "api: " + e.Message
}

func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

func newError(status int, body []byte) *Error {
	return &Error{Status: status, Message: errorMessage(body)}
}

// errorMessage pulls a human message out of an error body, looking inside
// the usual envelopes too.
func errorMessage(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		s := strings.TrimSpace(string(body))
		if len(s) > 200 || strings.HasPrefix(s, "<") {
			return ""
		}
		return s
	}
	for _, key := range []string{"message", "mensagem", "error", "title", "detail"} {
		var s string
		if raw, ok := fields[key]; ok && json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	for _, key := range []string{"dados", "data"} {
		if raw, ok := fields[key]; ok && !isNull(raw) {
			if msg := errorMessage(raw); msg != "" {
				return msg
			}
		}
	}
	return ""
}

// Message returns a user-facing message for err, or fallback when err
// carries nothing better.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// StatusOf returns the upstream status for err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
