// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package domain

import "errors"

// ErrorType represents the semantic category of an error
type ErrorType int

const (
	ErrorTypeValidation  ErrorType = iota // Invalid scheduling operations and malformed input
	ErrorTypeNotFound                     // Entity or collection not found
	ErrorTypeConflict                     // Name collisions on queue item creation
	ErrorTypeInternal                     // Storage commit and encoding failures
	ErrorTypeUnavailable                  // Collaborator (store, bridge) not reachable
)

// DomainError represents an error with semantic type information
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error // underlying error for wrapping
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// GetErrorType returns the semantic type of an error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ErrorTypeInternal // default fallback
}

// Error constructors for different types
func NewValidationError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeValidation, Message: message, Err: errors.Join(err...)}
}

func NewNotFoundError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeNotFound, Message: message, Err: errors.Join(err...)}
}

func NewConflictError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeConflict, Message: message, Err: errors.Join(err...)}
}

func NewInternalError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeInternal, Message: message, Err: errors.Join(err...)}
}

func NewUnavailableError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeUnavailable, Message: message, Err: errors.Join(err...)}
}

// Sentinel errors for the scheduling engine's failure taxonomy. Callers match
// these with errors.Is; the wrapping DomainError carries the semantic type.
var (
	// ErrInvalidOperation is returned when scheduling is requested on an
	// attendee-less event or no decision rule matches. Fatal to the whole
	// invocation: nothing is enqueued.
	ErrInvalidOperation = errors.New("invalid scheduling operation")

	// ErrRecipientResolution is recorded when a single attendee address cannot
	// be classified as internal or external. Only that recipient is skipped.
	ErrRecipientResolution = errors.New("recipient could not be resolved")

	// ErrDeliveryNameConflict is recorded when the retry budget for generating
	// a unique queue item name is exhausted.
	ErrDeliveryNameConflict = errors.New("delivery queue item name conflict")

	// ErrStorageCommit is recorded when the storage collaborator's commit call
	// fails. Not retried by this engine.
	ErrStorageCommit = errors.New("storage commit failed")
)
