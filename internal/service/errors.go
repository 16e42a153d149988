package service

import "errors"

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrExpenseNotFound is returned when no expense matches both id and owner.
	ErrExpenseNotFound = errors.New("expense not found")
	// ErrProcessing is returned when an uploaded file cannot be decoded.
	ErrProcessing = errors.New("error processing file")
)

// ValidationError describes missing or invalid caller input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationError(msg string) error {
	return &ValidationError{Msg: msg}
}
