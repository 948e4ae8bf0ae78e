package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("candidate not found")
	ErrBusy              = errors.New("another session is being opened")
	ErrNoActiveSession   = errors.New("no active session")
	ErrInvalidState      = errors.New("operation not allowed in current state")
	ErrProfileIncomplete = errors.New("candidate profile is incomplete")
	ErrEmptyAnswer       = errors.New("answer is empty")
)

// ValidationError reports a malformed response from the question generator.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Msg
}

// ServiceUnavailableError wraps a failed call to an external service.
type ServiceUnavailableError struct {
	Service string
	Err     error
}

func (e *ServiceUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
	}
	return e.Service + " unavailable"
}

func (e *ServiceUnavailableError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a failed read or write of the candidate store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsServiceUnavailable(err error) bool {
	var s *ServiceUnavailableError
	return errors.As(err, &s)
}

func IsPersistence(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}
