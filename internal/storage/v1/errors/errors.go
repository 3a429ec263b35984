// Package errors provides custom storage error types.
package errors

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type (
	StatementPSQLError struct {
		Err error
	}
	ExecutionPSQLError struct {
		Err error
	}
	ScanningPSQLError struct {
		Err error
	}
	AlreadyExistsError struct {
		Err error
		ID  string
	}
	NotFoundError struct {
		Err error
		ID  string
	}
	NotPendingError struct {
		ID     string
		Status string
	}
	InsufficientFundsError struct {
		Username string
		Balance  decimal.Decimal
		Required decimal.Decimal
	}
	ContextTimeoutExceededError struct {
		Err error
	}
	StorageFoundNilArgument struct {
		Msg string
	}
)

func (e *StatementPSQLError) Error() string {
	return fmt.Sprintf("%s: could not compile", e.Err.Error())
}

func (e *StatementPSQLError) Unwrap() error {
	return e.Err
}

func (e *ExecutionPSQLError) Error() string {
	return fmt.Sprintf("%s: could not execute", e.Err.Error())
}

func (e *ExecutionPSQLError) Unwrap() error {
	return e.Err
}

func (e *ScanningPSQLError) Error() string {
	return fmt.Sprintf("%s: could not scan", e.Err.Error())
}

func (e *ScanningPSQLError) Unwrap() error {
	return e.Err
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s: already exists", e.ID)
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: not found", e.ID)
}

func (e *NotPendingError) Error() string {
	return fmt.Sprintf("%s: request is %s, not pending", e.ID, e.Status)
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: present %s, required %s", e.Username, e.Balance.String(), e.Required.String())
}

func (e *ContextTimeoutExceededError) Error() string {
	return fmt.Sprintf("%s: context timeout exceeded", e.Err.Error())
}

func (e *ContextTimeoutExceededError) Unwrap() error {
	return e.Err
}

func (e *StorageFoundNilArgument) Error() string {
	return e.Msg
}
