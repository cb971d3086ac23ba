package domain

import (
	"errors"
	"sort"
	"strings"
)

// Error kinds. Every error returned by the service unwraps to one of these
// or is a *ValidationError.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidState    = errors.New("invalid state")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrValidation      = errors.New("validation failed")
)

var (
	// ErrSessionNotFound is returned when a quiz session does not exist.
	ErrSessionNotFound error = kindError{ErrNotFound, "quiz session not found"}
	// ErrParticipantNotFound is returned when a player acts before joining.
	ErrParticipantNotFound error = kindError{ErrNotFound, "participant not found in session"}
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound error = kindError{ErrNotFound, "quiz not found"}
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound error = kindError{ErrNotFound, "question not found"}

	ErrNotSessionManager error = kindError{ErrForbidden, "only the quiz creator or an admin can manage this session"}
	ErrNotParticipant    error = kindError{ErrForbidden, "participant belongs to another player"}
	ErrJoinNotAllowed    error = kindError{ErrForbidden, "session already started"}
	ErrQuizNotPlayable   error = kindError{ErrForbidden, "quiz is not published"}

	ErrSessionNotPending  error = kindError{ErrInvalidState, "session is not pending"}
	ErrSessionNotActive   error = kindError{ErrInvalidState, "session is not active"}
	ErrSessionCompleted   error = kindError{ErrInvalidState, "session is completed"}
	ErrQuestionNotCurrent error = kindError{ErrInvalidState, "question is not the current question"}
	ErrQuestionExpired    error = kindError{ErrInvalidState, "time for this question has run out"}
	ErrAlreadyAnswered    error = kindError{ErrInvalidState, "answer already submitted for this question"}
	ErrQuizArchived       error = kindError{ErrInvalidState, "quiz is archived"}

	ErrMissingCredentials error = kindError{ErrUnauthenticated, "authentication required"}
	ErrInvalidCredentials error = kindError{ErrUnauthenticated, "invalid or expired token"}
)

type kindError struct {
	kind error
	msg  string
}

func (e kindError) Error() string { return e.msg }

func (e kindError) Unwrap() error { return e.kind }

// ValidationError carries per-field messages for malformed input.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
