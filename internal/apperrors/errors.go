// Package apperrors defines the error taxonomy shared across services and
// the HTTP layer. Validation, conflict and not-found errors surface
// synchronously to callers; generation and publish errors are expected during
// normal operation and are absorbed into failed post records.
package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError reports invalid input, rejected before any state change.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports an operation that is not allowed in the target's
// current state, such as editing a running campaign.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// Conflictf builds a ConflictError from a format string.
func Conflictf(format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown entity ID.
type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// NewCampaignNotFound builds a NotFoundError for a campaign ID.
func NewCampaignNotFound(id uint) *NotFoundError {
	return &NotFoundError{Resource: "campaign", ID: id}
}

// GenerationError reports a text-generation collaborator failure.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("text generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Publish error cause codes.
const (
	PublishCodeAuth       = "auth"
	PublishCodeRateLimit  = "rate-limit"
	PublishCodePermission = "permission"
	PublishCodeUnknown    = "unknown"
)

// PublishError reports a posting collaborator failure with a cause code.
type PublishError struct {
	Code string
	Err  error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish failed (%s): %v", e.Code, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
