package wizard

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoTeacher is returned by GoToStep when no teacher has been resolved yet.
// Unlike transient gateway failures this is a hard precondition: silently
// no-op-ing would leave the caller stuck on a stale step.
var ErrNoTeacher = errors.New("teacher not selected")

// ErrNotCompletable is returned by CompleteRun before the workflow has
// reached its final step.
var ErrNotCompletable = errors.New("grading run not completable")

// APIError is a failed gateway round-trip carrying the server's error body.
type APIError struct {
	StatusCode int
	Detail     string `json:"detail"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	switch {
	case strings.TrimSpace(e.Detail) != "":
		return e.Detail
	case strings.TrimSpace(e.Message) != "":
		return e.Message
	default:
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
}

const genericErrorMessage = "an unknown error occurred"

// NormalizeError collapses any error into the single user-visible string the
// UI displays. Extraction priority: server detail field, server message
// field, the Go error text, then a generic fallback. Callers pattern-match
// on these strings, so the priority order is part of the contract.
func NormalizeError(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if d := strings.TrimSpace(apiErr.Detail); d != "" {
			return d
		}
		if m := strings.TrimSpace(apiErr.Message); m != "" {
			return m
		}
	}
	if msg := err.Error(); strings.TrimSpace(msg) != "" {
		return msg
	}
	return genericErrorMessage
}
