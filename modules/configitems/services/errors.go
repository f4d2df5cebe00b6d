package services

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the services wraps one of them; match with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrPolicyViolation   = errors.New("policy violation")
	ErrMissingDependency = errors.New("missing dependency")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
)

type ServiceError struct {
	Kind    error
	Code    string
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func newServiceError(kind error, code, message string, cause error) *ServiceError {
	return &ServiceError{Kind: kind, Code: code, Message: message, Cause: cause}
}

func validationError(code, message string, cause error) *ServiceError {
	return newServiceError(ErrValidation, code, message, cause)
}

func policyError(code, message string) *ServiceError {
	return newServiceError(ErrPolicyViolation, code, message, nil)
}

// Code returns the machine readable code of a service error, or "" for other errors.
func Code(err error) string {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
