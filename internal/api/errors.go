package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoRefreshToken is returned by a refresh attempt when the token store
// holds no refresh token.
var ErrNoRefreshToken = errors.New("api: no refresh token")

// ErrNoAccessToken is returned when a refresh reply carries no access token.
var ErrNoAccessToken = errors.New("api: refresh response carried no access token")

// Error is a non-2xx response from the platform API.
type Error struct {
	Status  int
	Message string
	Details map[string][]string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// FieldErrors flattens Details into "field: message" lines.
func (e *Error) FieldErrors() []string {
	out := make([]string, 0, len(e.Details))
	for field, msgs := range e.Details {
		out = append(out, field+": "+strings.Join(msgs, ", "))
	}
	return out
}

// IsStatus reports whether err is an *Error with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// IsUnauthorized reports whether err is a 401 from the platform API.
func IsUnauthorized(err error) bool { return IsStatus(err, http.StatusUnauthorized) }

// Message returns a user-facing message for err, falling back to def.
func Message(err error, def string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return def
}

type errorBody struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
	Details json.RawMessage `json:"details"`
}

// decodeError builds an *Error from a response body. Bodies that are not
// the JSON error envelope still yield an *Error with the status alone.
func decodeError(status int, body []byte) *Error {
	e := &Error{Status: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return e
	}

	switch {
	case eb.Error != "":
		e.Message = eb.Error
	case eb.Message != "":
		e.Message = eb.Message
	case eb.Detail != "":
		e.Message = eb.Detail
	}

	if len(eb.Details) > 0 {
		var details map[string][]string
		if err := json.Unmarshal(eb.Details, &details); err == nil {
			e.Details = details
		}
	}
	return e
}
