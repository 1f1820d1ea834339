package generation

import (
	"fmt"
	"strings"

	"github.com/conjugo/conjugo/internal/domain/models"
)

// PromptVersion is recorded in the generation trace of every problem so
// prompt changes can be correlated with quality regressions.
const PromptVersion = "2.0"

// promptHeader renders the block shared by every sentence prompt: the verb's
// attributes, the grammatical parameters the sentence must use, and the
// stored conjugation table for the required tense when one exists. Grounding
// the model with the actual forms keeps the "correct" option honest for
// irregular verbs.
func promptHeader(verb *models.Verb, params models.SentenceParams, conj *models.Conjugation) string {
	var b strings.Builder

	b.WriteString("You are generating a French sentence for a grammar exercise.\n\n")
	b.WriteString("Verb:\n")
	fmt.Fprintf(&b, "- infinitive: %s\n", verb.Infinitive)
	fmt.Fprintf(&b, "- translation: %s\n", verb.Translation)
	fmt.Fprintf(&b, "- auxiliary: %s\n", verb.Auxiliary)
	fmt.Fprintf(&b, "- past participle: %s\n", verb.PastParticiple)
	if verb.Reflexive {
		b.WriteString("- the verb is reflexive\n")
	}
	if verb.IsIrregular {
		b.WriteString("- the verb is irregular\n")
	}

	b.WriteString("\nRequired parameters (the sentence MUST use all of them):\n")
	fmt.Fprintf(&b, "- subject pronoun: %s\n", params.Pronoun)
	fmt.Fprintf(&b, "- tense: %s\n", params.Tense)
	if params.DirectObject.Present() {
		fmt.Fprintf(&b, "- direct object (COD): %s — replace it with the matching object pronoun (le/la/les)\n", describeObject(params.DirectObject))
	} else {
		b.WriteString("- no direct object\n")
	}
	if params.IndirectObject.Present() {
		fmt.Fprintf(&b, "- indirect object (COI): %s — replace it with the matching object pronoun (lui/leur)\n", describeObject(params.IndirectObject))
	} else {
		b.WriteString("- no indirect object\n")
	}
	if params.Negation.Present() {
		fmt.Fprintf(&b, "- negation: ne ... %s\n", params.Negation)
	} else {
		b.WriteString("- no negation\n")
	}

	if conj != nil {
		fmt.Fprintf(&b, "\nReference conjugation of %s (%s):\n", verb.Infinitive, conj.Tense)
		for _, pronoun := range models.AllPronouns {
			if form := conj.FormFor(pronoun); form != nil {
				fmt.Fprintf(&b, "- %s: %s\n", pronoun, *form)
			}
		}
	}

	return b.String()
}

// outputContract is the JSON shape every prompt demands from the model.
const outputContract = `
Respond with a single JSON object, nothing else:
{"sentence": "<the French sentence>", "translation": "<English translation>", "explanation": "<why the sentence is wrong, or empty string>"}
`

// RenderCorrectPrompt builds the prompt for the problem's correct sentence.
// conj may be nil for verbs without a stored table.
func RenderCorrectPrompt(verb *models.Verb, params models.SentenceParams, conj *models.Conjugation) string {
	var b strings.Builder
	b.WriteString(promptHeader(verb, params, conj))
	b.WriteString("\nInstructions:\n")
	b.WriteString("Write one grammatically CORRECT sentence using the verb and every required parameter above.\n")
	b.WriteString("The sentence must be natural, everyday French of A2-B1 difficulty.\n")
	b.WriteString("The explanation field must be an empty string.\n")
	b.WriteString(outputContract)
	return b.String()
}

// RenderErrorPrompt builds the prompt for one incorrect sentence. The prompt
// names exactly one rule to break and requires all other grammar to stay
// correct, so the wrong option differs from the correct one in a single,
// explainable way.
func RenderErrorPrompt(verb *models.Verb, params models.SentenceParams, conj *models.Conjugation, errorType ErrorType) string {
	var b strings.Builder
	b.WriteString(promptHeader(verb, params, conj))
	b.WriteString("\nInstructions:\n")
	b.WriteString("Write one sentence using the verb and every required parameter above, but make it INCORRECT by breaking exactly this rule:\n")

	switch errorType {
	case ErrorCODPronoun:
		b.WriteString("- COD_PRONOUN_ERROR: use the WRONG direct object pronoun (wrong gender, wrong number, or wrong position).\n")
	case ErrorCOIPronoun:
		b.WriteString("- COI_PRONOUN_ERROR: use the WRONG indirect object pronoun (wrong number, or a direct pronoun where an indirect one belongs).\n")
	case ErrorWrongConjugation:
		b.WriteString("- WRONG_CONJUGATION: conjugate the verb incorrectly for the required pronoun and tense (wrong person ending or wrong stem).\n")
	case ErrorWrongAuxiliary:
		b.WriteString("- WRONG_AUXILIARY: build the compound tense with the wrong auxiliary verb (avoir instead of être, or the reverse).\n")
	case ErrorPastParticipleAgreement:
		b.WriteString("- PAST_PARTICIPLE_AGREEMENT: with auxiliary être, make the past participle NOT agree with the subject in gender and number.\n")
	}

	b.WriteString("Every other aspect of the grammar must remain correct, so the error is the only thing wrong with the sentence.\n")
	b.WriteString("The explanation field must describe, in English, exactly which rule was broken and how.\n")
	b.WriteString(outputContract)
	return b.String()
}

func describeObject(category models.ObjectCategory) string {
	switch category {
	case models.ObjectMasculine:
		return "masculine singular"
	case models.ObjectFeminine:
		return "feminine singular"
	case models.ObjectPlural:
		return "plural"
	default:
		return "none"
	}
}

// OperationTag names one sentence generation for error reporting and
// metrics: "correct_sentence" or "error_sentence:<ERROR_TYPE>".
func OperationTag(errorType ErrorType, correct bool) string {
	if correct {
		return "correct_sentence"
	}
	return "error_sentence:" + string(errorType)
}
