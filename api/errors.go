package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a non-2xx response. ServerError and ServerMessage are the
// "error" and "message" fields of the JSON body when present.
type Error struct {
	Method        string
	Path          string
	StatusCode    int
	ServerError   string
	ServerMessage string
	Body          string
}

func newError(method, path string, status int, body []byte) *Error {
	e := &Error{Method: method, Path: path, StatusCode: status, Body: string(body)}
	var fields struct {
		Error   any `json:"error"`
		Message any `json:"message"`
	}
	if json.Unmarshal(body, &fields) == nil {
		e.ServerError = stringField(fields.Error)
		e.ServerMessage = stringField(fields.Message)
	}
	return e
}

// stringField tolerates servers that nest {"error": {"message": "..."}}.
func stringField(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if msg, ok := t["message"].(string); ok {
			return msg
		}
	}
	return ""
}

func (e *Error) Error() string {
	detail := e.ServerError
	if detail == "" {
		detail = e.ServerMessage
	}
	if detail == "" {
		detail = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, detail)
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsGoogleAuthError reports whether err means the stored Google credentials
// are no longer accepted and the user has to go through OAuth again.
func IsGoogleAuthError(err error) bool {
	if err == nil {
		return false
	}
	if strings.Contains(err.Error(), "Google authentication expired") ||
		strings.Contains(err.Error(), "unauthorized_client") {
		return true
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return strings.Contains(apiErr.ServerError, "Google authentication expired")
	}
	return false
}
