package models

import "errors"

// Validation errors raised by model invariant checks. Storage-level and
// transport-level errors live in the parent domain package.
var (
	ErrEmptyVerbField       = errors.New("verb string fields must be non-empty")
	ErrInvalidAuxiliary     = errors.New("auxiliary must be avoir or être")
	ErrInvalidLanguageCode  = errors.New("target language code must be 3 lowercase letters")
	ErrInvalidTense         = errors.New("unknown tense")
	ErrMissingExplanation   = errors.New("incorrect sentences require a non-empty explanation")
	ErrUnexpectedExplanation = errors.New("correct sentences must have an empty explanation")
	ErrInvalidAnswerIndex   = errors.New("correct answer index out of range")
	ErrNoStatements         = errors.New("problem requires at least one statement")
	ErrInvalidStatementShape = errors.New("statement missing keys required by the problem type")
	ErrInvalidObjectCategory = errors.New("unknown object category")
	ErrInvalidNegation      = errors.New("unknown negation")
)
