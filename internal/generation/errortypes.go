// Package generation builds grammar problems: it selects the grammatical
// errors to inject, renders one prompt per sentence, fans the LLM calls out
// in parallel and packages the results into a problem record.
package generation

import (
	"math/rand"

	"github.com/conjugo/conjugo/internal/domain/models"
)

// ErrorType is a named category of grammatical mistake the prompt builder
// can instruct the model to inject into an incorrect sentence.
type ErrorType string

const (
	ErrorCODPronoun              ErrorType = "COD_PRONOUN_ERROR"
	ErrorCOIPronoun              ErrorType = "COI_PRONOUN_ERROR"
	ErrorWrongConjugation        ErrorType = "WRONG_CONJUGATION"
	ErrorWrongAuxiliary          ErrorType = "WRONG_AUXILIARY"
	ErrorPastParticipleAgreement ErrorType = "PAST_PARTICIPLE_AGREEMENT"
)

// IncorrectPerProblem is the number of deliberately wrong statements in a
// grammar problem; with the correct sentence that makes four options.
const IncorrectPerProblem = 3

// AvailableErrorTypes returns the error types applicable to a sentence with
// the given parameters, in catalog order:
//
//	COD_PRONOUN_ERROR         — sentence has a direct object
//	COI_PRONOUN_ERROR         — sentence has an indirect object
//	WRONG_CONJUGATION         — always
//	WRONG_AUXILIARY           — compound tense only
//	PAST_PARTICIPLE_AGREEMENT — compound tense with auxiliary être
func AvailableErrorTypes(verb *models.Verb, params models.SentenceParams) []ErrorType {
	var available []ErrorType
	if params.DirectObject.Present() {
		available = append(available, ErrorCODPronoun)
	}
	if params.IndirectObject.Present() {
		available = append(available, ErrorCOIPronoun)
	}
	available = append(available, ErrorWrongConjugation)
	if params.Tense.IsCompound() {
		available = append(available, ErrorWrongAuxiliary)
		if verb.Auxiliary == models.AuxiliaryEtre {
			available = append(available, ErrorPastParticipleAgreement)
		}
	}
	return available
}

// SelectErrorTypes picks the three error types for a problem's incorrect
// sentences. Object-pronoun errors are mandatory whenever the sentence
// carries the corresponding object; the remainder is sampled uniformly
// without replacement from the available set. When fewer than three error
// types are available, WRONG_CONJUGATION repeats to pad.
func SelectErrorTypes(verb *models.Verb, params models.SentenceParams, rng *rand.Rand) []ErrorType {
	available := AvailableErrorTypes(verb, params)

	var selected []ErrorType
	if params.DirectObject.Present() {
		selected = append(selected, ErrorCODPronoun)
	}
	if params.IndirectObject.Present() {
		selected = append(selected, ErrorCOIPronoun)
	}

	remaining := make([]ErrorType, 0, len(available))
	for _, et := range available {
		if !containsErrorType(selected, et) {
			remaining = append(remaining, et)
		}
	}
	rng.Shuffle(len(remaining), func(i, j int) {
		remaining[i], remaining[j] = remaining[j], remaining[i]
	})

	for _, et := range remaining {
		if len(selected) == IncorrectPerProblem {
			break
		}
		selected = append(selected, et)
	}
	for len(selected) < IncorrectPerProblem {
		selected = append(selected, ErrorWrongConjugation)
	}
	return selected[:IncorrectPerProblem]
}

func containsErrorType(list []ErrorType, et ErrorType) bool {
	for _, e := range list {
		if e == et {
			return true
		}
	}
	return false
}
