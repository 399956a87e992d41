package linksdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// API error codes.
const (
	ErrorCodeInvalidRequest    = "invalid_request"
	ErrorCodeInvalidSubject    = "invalid_subject"
	ErrorCodeInvalidAction     = "invalid_action"
	ErrorCodeNotFound          = "not_found"
	ErrorCodeInvalidToken      = "invalid_token"
	ErrorCodeInsufficientScope = "insufficient_scope"
	ErrorCodeRateLimited       = "rate_limit_exceeded"
	ErrorCodeServerError       = "server_error"
)

// APIError is the JSON error body of the API. The server writes it and the
// client returns it.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches on Code so callers can compare against the predefined errors.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// WriteError writes e as a JSON response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

// NewAPIError builds an error with a custom description.
func NewAPIError(status int, code, description string) *APIError {
	return &APIError{StatusCode: status, Code: code, Description: description}
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}
	ErrInvalidSubject = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidSubject,
		Description: "subject is empty or unknown",
	}
	ErrInvalidAction = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidAction,
		Description: "unknown action or invalid extras for the action",
	}
	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "referenced event does not exist",
	}
	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "the server encountered an unexpected condition",
	}
)
