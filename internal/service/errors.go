package service

import (
	"errors"
	"net/http"
)

// Error is a failure the API layer reports to the client with Status.
type Error struct {
	Status  int
	Message string
	// Detail, when set, is returned to the client alongside Message.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func badRequest(msg string) *Error   { return &Error{Status: http.StatusBadRequest, Message: msg} }
func unauthorized(msg string) *Error { return &Error{Status: http.StatusUnauthorized, Message: msg} }
func forbidden(msg string) *Error    { return &Error{Status: http.StatusForbidden, Message: msg} }
func notFound(msg string) *Error     { return &Error{Status: http.StatusNotFound, Message: msg} }

func internal(msg string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: msg, Err: err}
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var se *Error
	if errors.As(err, &se) {
		return se.Status
	}
	return http.StatusInternalServerError
}
