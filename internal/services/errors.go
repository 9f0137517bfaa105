// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrorKind classifies service failures so callers can decide how to react.
type ErrorKind string

const (
	// KindValidation marks malformed or missing input. Not retryable.
	KindValidation ErrorKind = "validation"
	// KindNotFound marks an operation addressing an unknown id.
	KindNotFound ErrorKind = "not_found"
	// KindConflict marks an operation that would violate a terminal-state invariant.
	KindConflict ErrorKind = "conflict"
	// KindPersistence marks a failure of the underlying store.
	KindPersistence ErrorKind = "persistence"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrPersistence = errors.New("persistence error")
)

// Error carries the operation, entity and reason of a failed service call.
type Error struct {
	Op     string
	Kind   ErrorKind
	Entity string
	ID     string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Op + ": "
	if e.Entity != "" {
		msg += e.Entity
		if e.ID != "" {
			msg += " " + e.ID
		}
		msg += ": "
	}
	msg += e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is match the kind sentinels.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConflict:
		return e.Kind == KindConflict
	case ErrPersistence:
		return e.Kind == KindPersistence
	}
	return false
}

// ItemError reports the position of a failing element of a bulk request.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

func validationError(op, entity, reason string, err error) error {
	return &Error{Op: op, Kind: KindValidation, Entity: entity, Reason: reason, Err: err}
}

func notFoundError(op, entity, id string) error {
	return &Error{Op: op, Kind: KindNotFound, Entity: entity, ID: id, Reason: "not found"}
}

func conflictError(op, entity, id, reason string) error {
	return &Error{Op: op, Kind: KindConflict, Entity: entity, ID: id, Reason: reason}
}

// persistenceError wraps a gorm failure, translating missing rows into not_found.
func persistenceError(op, entity, id string, err error) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundError(op, entity, id)
	}
	return &Error{Op: op, Kind: KindPersistence, Entity: entity, ID: id, Reason: "database error", Err: err}
}

// KindOf returns the kind of err, or "" for errors not produced by this package.
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return ""
}

func reasonOf(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Reason
	}
	return err.Error()
}
