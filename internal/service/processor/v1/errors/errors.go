// Package errors provides custom service error types.
package errors

import (
	"fmt"
	"strings"
)

type (
	ServiceFoundNilArgument struct {
		Msg string
	}
	ValidationError struct {
		Err error
	}
	InvalidCredentialsError struct {
		Username string
	}
)

func (e *ServiceFoundNilArgument) Error() string {
	return e.Msg
}

func (e *ValidationError) Error() string {
	return strings.ReplaceAll(e.Err.Error(), "\n", "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("%s: invalid login", e.Username)
}
