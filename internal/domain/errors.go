package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrSuperseded marks a response that arrived after a newer request started.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// ValidationError is a user-correctable input problem. No state was changed.
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

// NewValidationError builds a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StaleCatalogError reports a product the catalog snapshot does not know yet.
// A refresh has been requested; the caller should retry.
type StaleCatalogError struct {
	ProductID ProductID
}

func (e *StaleCatalogError) Error() string {
	return fmt.Sprintf("product %s is not in the catalog yet, try again", e.ProductID)
}

// TransportError wraps a network, storage or decoding failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsStaleCatalog reports whether err is a StaleCatalogError.
func IsStaleCatalog(err error) bool {
	var s *StaleCatalogError
	return errors.As(err, &s)
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var t *TransportError
	return errors.As(err, &t)
}
