package main

import (
	"errors"

	"github.com/iota-uz/configitems/modules/configitems/services"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK                = 0
	exitValidation        = 2
	exitUsage             = 3
	exitDB                = 4
	exitConflict          = 5
	exitMissingDependency = 6
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

// withServiceCode picks the exit code from the kind of a service error. Errors that
// already carry a code keep it.
func withServiceCode(err error) error {
	var ce *cliError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ce):
		return err
	case errors.Is(err, services.ErrValidation):
		return withCode(exitValidation, err)
	case errors.Is(err, services.ErrPolicyViolation), errors.Is(err, services.ErrConflict):
		return withCode(exitConflict, err)
	case errors.Is(err, services.ErrMissingDependency):
		return withCode(exitMissingDependency, err)
	case errors.Is(err, services.ErrNotFound):
		return withCode(exitUsage, err)
	default:
		return withCode(exitDB, err)
	}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return 1
}
