package usecase

import (
	"errors"
	"fmt"
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeCapacityExceeded  = "CAPACITY_EXCEEDED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeNotFound          = "NOT_FOUND"
)

// DomainError is implemented by every business-rule failure. None of them are
// retried; handlers surface Code and Error() verbatim.
type DomainError interface {
	error
	Code() string
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Code() string { return CodeValidation }

type CapacityExceededError struct {
	TechnicianID string
	Date         string
	Max          int
	Current      int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("technician %s already has %d of %d jobs on %s", e.TechnicianID, e.Current, e.Max, e.Date)
}

func (e *CapacityExceededError) Code() string { return CodeCapacityExceeded }

type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Code() string { return CodeInvalidTransition }

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Code() string { return CodeNotFound }

func IsDomainError(err error) bool {
	var de DomainError
	return errors.As(err, &de)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// notFound translates a repository sentinel into a NotFoundError, passing
// any other error through untouched.
func notFound(err, sentinel error, resource, id string) error {
	if errors.Is(err, sentinel) {
		return &NotFoundError{Resource: resource, ID: id}
	}
	return err
}
