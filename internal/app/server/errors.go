package server

import (
	"errors"
	"net/http"
)

type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindForbidden  ErrorKind = "forbidden"
	KindState      ErrorKind = "invalid_state"
	KindDependency ErrorKind = "dependency"
)

// Error is the structured failure every rejected operation returns: a
// short title, a human description the UI can surface directly, and a
// machine classification. Callers never see a bare error.
type Error struct {
	Kind        ErrorKind `json:"status"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}

func (e *Error) Error() string {
	return e.Title + ": " + e.Description
}

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindState:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func newValidationError(title, description string) *Error {
	return &Error{Kind: KindValidation, Title: title, Description: description}
}

func newNotFoundError(title, description string) *Error {
	return &Error{Kind: KindNotFound, Title: title, Description: description}
}

func newConflictError(title, description string) *Error {
	return &Error{Kind: KindConflict, Title: title, Description: description}
}

func newForbiddenError(title, description string) *Error {
	return &Error{Kind: KindForbidden, Title: title, Description: description}
}

func newStateError(title, description string) *Error {
	return &Error{Kind: KindState, Title: title, Description: description}
}

func newDependencyError(title string, err error) *Error {
	return &Error{Kind: KindDependency, Title: title, Description: err.Error()}
}

// AsError extracts the structured error, if err carries one.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
