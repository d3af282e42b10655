package models

import (
	"errors"
	"fmt"
)

var (
	ErrNoRecord            = errors.New("models: no matching record found")
	ErrJobNotFound         = errors.New("job not found")
	ErrUserNotFound        = errors.New("models: user not found")
	ErrLanguageNotFound    = errors.New("language not found")
	ErrRelationNotFound    = errors.New("translator relation not found")
	ErrInvalidCredentials  = errors.New("models: invalid credentials")
	ErrDuplicateEmail      = errors.New("models: duplicate email")
	ErrJobAlreadyTaken     = errors.New("job already taken")
	ErrTranslatorBooked    = errors.New("translator already booked for an overlapping time")
	ErrUnknownJobType      = errors.New("unknown job type")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrCancellationClosed  = errors.New("cancellation window closed")
	ErrJobNotPending       = errors.New("job is no longer pending")
	ErrSessionTimeRequired = errors.New("session time is required to complete a job")
)

// ValidationError is the business-validation failure tier: it surfaces to the
// caller as a {status:"fail", message, field_name} payload, never as a 5xx.
type ValidationError struct {
	FieldName string `json:"field_name"`
	Message   string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.FieldName, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{FieldName: field, Message: message}
}
