package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrTransportFailure matches every failed backend call, whether the request
// never completed or the backend answered with a non-2xx status.
var ErrTransportFailure = errors.New("backend request failed")

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	// Detail is the backend's own explanation, when it sent one.
	Detail string
	Body   string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %s: %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Status)
}

func (e *APIError) Is(target error) bool { return target == ErrTransportFailure }

// Message is the text shown to the user for a failed call.
func (e *APIError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Status
}

// parseDetail reads {"detail": "..."} and {"detail": [{"msg": "..."}]} error
// bodies.
func parseDetail(body []byte) string {
	var parsed struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	if parsed.Error != "" {
		return parsed.Error
	}
	if len(parsed.Detail) == 0 {
		return ""
	}

	var detail string
	if err := json.Unmarshal(parsed.Detail, &detail); err == nil {
		return detail
	}

	var details []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(parsed.Detail, &details); err == nil {
		msgs := make([]string, 0, len(details))
		for _, d := range details {
			if d.Msg != "" {
				msgs = append(msgs, d.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
