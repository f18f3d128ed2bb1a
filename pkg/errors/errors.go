package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType identifies a class of scheduling error
type ErrorType string

const (
	ErrorTypeInvalidInterval     ErrorType = "invalid_interval"
	ErrorTypeEmptyWindow         ErrorType = "empty_window"
	ErrorTypeInvalidDuration     ErrorType = "invalid_duration"
	ErrorTypeNoCandidates        ErrorType = "no_candidates"
	ErrorTypePollNotFound        ErrorType = "poll_not_found"
	ErrorTypePollClosed          ErrorType = "poll_closed"
	ErrorTypeVoterNotInGroup     ErrorType = "voter_not_in_group"
	ErrorTypeUnknownCandidate    ErrorType = "unknown_candidate"
	ErrorTypeRegistrationFailure ErrorType = "registration_failure"
	ErrorTypeVersionConflict     ErrorType = "version_conflict"
	ErrorTypeAuthentication      ErrorType = "authentication"
	ErrorTypeValidation          ErrorType = "validation"
	ErrorTypeInternal            ErrorType = "internal"
)

// AppError is a structured application error carrying its HTTP mapping
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Internal   error                  `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// NewInvalidInterval flags a busy interval whose start is not before its end
func NewInvalidInterval(participantID string) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidInterval,
		Message:    "busy interval start must be before end",
		StatusCode: http.StatusBadRequest,
		Details:    map[string]interface{}{"participant_id": participantID},
	}
}

// NewEmptyWindow flags a search window whose end is not after its start
func NewEmptyWindow() *AppError {
	return &AppError{
		Type:       ErrorTypeEmptyWindow,
		Message:    "search window end must be after start",
		StatusCode: http.StatusBadRequest,
	}
}

// NewInvalidDuration flags a non-positive meeting duration
func NewInvalidDuration() *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidDuration,
		Message:    "meeting duration must be positive",
		StatusCode: http.StatusBadRequest,
	}
}

// NewNoCandidates flags candidate generation or finalization over an empty list
func NewNoCandidates(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNoCandidates,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// NewPollNotFound flags a lookup for a poll id the store does not hold
func NewPollNotFound(pollID string) *AppError {
	return &AppError{
		Type:       ErrorTypePollNotFound,
		Message:    "poll not found",
		StatusCode: http.StatusNotFound,
		Details:    map[string]interface{}{"poll_id": pollID},
	}
}

// NewPollClosed rejects a mutating call against a poll that no longer accepts it
func NewPollClosed(status string) *AppError {
	return &AppError{
		Type:       ErrorTypePollClosed,
		Message:    fmt.Sprintf("poll no longer accepts this operation (status %s)", status),
		StatusCode: http.StatusConflict,
		Details:    map[string]interface{}{"status": status},
	}
}

// NewVoterNotInGroup rejects a vote from a participant outside the poll's group
func NewVoterNotInGroup(participantID string) *AppError {
	return &AppError{
		Type:       ErrorTypeVoterNotInGroup,
		Message:    "participant is not part of this poll",
		StatusCode: http.StatusForbidden,
		Details:    map[string]interface{}{"participant_id": participantID},
	}
}

// NewUnknownCandidate rejects a vote for a candidate id the poll does not carry
func NewUnknownCandidate(candidateID string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnknownCandidate,
		Message:    "candidate does not belong to this poll",
		StatusCode: http.StatusUnprocessableEntity,
		Details:    map[string]interface{}{"candidate_id": candidateID},
	}
}

// NewRegistrationFailure wraps a per-participant calendar registration error.
// It is reported inside the finalized result, never as a failed finalization.
func NewRegistrationFailure(participantID string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeRegistrationFailure,
		Message:    "calendar registration failed",
		StatusCode: http.StatusBadGateway,
		Internal:   internal,
		Details:    map[string]interface{}{"participant_id": participantID},
	}
}

// NewVersionConflict flags a stale write against a concurrently modified poll
func NewVersionConflict(pollID string) *AppError {
	return &AppError{
		Type:       ErrorTypeVersionConflict,
		Message:    "poll was modified concurrently",
		StatusCode: http.StatusConflict,
		Details:    map[string]interface{}{"poll_id": pollID},
	}
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewValidationError creates a new request validation error
func NewValidationError(message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}
