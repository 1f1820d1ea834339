package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	// Entity errors
	ErrVerbNotFound        = errors.New("verb not found")
	ErrConjugationNotFound = errors.New("conjugation not found")
	ErrSentenceNotFound    = errors.New("sentence not found")
	ErrProblemNotFound     = errors.New("problem not found")
	ErrRequestNotFound     = errors.New("generation request not found")
	ErrAPIKeyNotFound      = errors.New("api key not found")

	// Storage errors
	ErrAlreadyExists = errors.New("entity already exists")
	ErrNotFound      = errors.New("resource not found")

	// Validation errors
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidStatement  = errors.New("statement violates the shape required by its problem type")
	ErrInvalidTransition = errors.New("invalid generation request status transition")

	// Auth errors
	ErrUnauthorized = errors.New("missing or invalid api key")
	ErrForbidden    = errors.New("api key lacks the required permission")
	ErrRateLimited  = errors.New("rate limit exceeded")

	// Infrastructure errors
	ErrBrokerUnavailable = errors.New("message broker unavailable")
)

// ContentGenerationError is returned when the LLM produced a transport error,
// an invalid response, or JSON that does not match the expected shape.
// Operation identifies which sentence generation failed (e.g. "correct_sentence",
// "error_sentence:COD_PRONOUN_ERROR").
type ContentGenerationError struct {
	Operation string
	Err       error
}

func (e *ContentGenerationError) Error() string {
	return fmt.Sprintf("content generation failed for %s: %v", e.Operation, e.Err)
}

func (e *ContentGenerationError) Unwrap() error {
	return e.Err
}

func NewContentGenerationError(operation string, err error) *ContentGenerationError {
	return &ContentGenerationError{Operation: operation, Err: err}
}

// IsContentGenerationError reports whether err is (or wraps) a ContentGenerationError.
func IsContentGenerationError(err error) bool {
	var cge *ContentGenerationError
	return errors.As(err, &cge)
}
