package models

import (
	"time"
)

// Pronoun is the subject pronoun of a generated sentence.
type Pronoun string

const (
	PronounJe    Pronoun = "je"
	PronounTu    Pronoun = "tu"
	PronounIl    Pronoun = "il"
	PronounElle  Pronoun = "elle"
	PronounOn    Pronoun = "on"
	PronounNous  Pronoun = "nous"
	PronounVous  Pronoun = "vous"
	PronounIls   Pronoun = "ils"
	PronounElles Pronoun = "elles"
)

// AllPronouns lists the subject pronouns the generator may pick from.
var AllPronouns = []Pronoun{
	PronounJe, PronounTu, PronounIl, PronounElle, PronounOn,
	PronounNous, PronounVous, PronounIls, PronounElles,
}

// ObjectCategory classifies a direct or indirect object by gender/number,
// which determines the pronoun that replaces it (le/la/les, lui/leur).
type ObjectCategory string

const (
	ObjectNone      ObjectCategory = "none"
	ObjectMasculine ObjectCategory = "masc"
	ObjectFeminine  ObjectCategory = "fem"
	ObjectPlural    ObjectCategory = "plural"
)

func (c ObjectCategory) Valid() bool {
	switch c {
	case ObjectNone, ObjectMasculine, ObjectFeminine, ObjectPlural:
		return true
	}
	return false
}

// Present reports whether the category denotes an object at all.
func (c ObjectCategory) Present() bool {
	return c != "" && c != ObjectNone
}

// Negation is the negative construction applied to a sentence.
type Negation string

const (
	NegationNone     Negation = "none"
	NegationPas      Negation = "pas"
	NegationJamais   Negation = "jamais"
	NegationRien     Negation = "rien"
	NegationPersonne Negation = "personne"
	NegationPlus     Negation = "plus"
	NegationAucun    Negation = "aucun"
	NegationAucune   Negation = "aucune"
	NegationEncore   Negation = "encore"
)

// AllNegations lists every negation the generator may pick from, including none.
var AllNegations = []Negation{
	NegationNone, NegationPas, NegationJamais, NegationRien,
	NegationPersonne, NegationPlus, NegationAucun, NegationAucune, NegationEncore,
}

func (n Negation) Valid() bool {
	for _, known := range AllNegations {
		if n == known {
			return true
		}
	}
	return false
}

// Present reports whether the sentence is negated at all.
func (n Negation) Present() bool {
	return n != "" && n != NegationNone
}

// Sentence is one generated sentence, correct or deliberately incorrect.
// It references its Verb by id; deleting the verb cascades to the sentence.
type Sentence struct {
	ID               string         `json:"id"`
	VerbID           string         `json:"verb_id"`
	Content          string         `json:"content"`
	Translation      string         `json:"translation,omitempty"`
	Pronoun          Pronoun        `json:"pronoun"`
	Tense            Tense          `json:"tense"`
	DirectObject     ObjectCategory `json:"direct_object"`
	IndirectObject   ObjectCategory `json:"indirect_object"`
	ReflexivePronoun ObjectCategory `json:"reflexive_pronoun"`
	Negation         Negation       `json:"negation"`
	IsCorrect        bool           `json:"is_correct"`
	Explanation      string         `json:"explanation,omitempty"`
	Source           string         `json:"source,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Validate enforces the explanation contract: non-empty iff incorrect.
func (s *Sentence) Validate() error {
	if s.IsCorrect && s.Explanation != "" {
		return ErrUnexpectedExplanation
	}
	if !s.IsCorrect && s.Explanation == "" {
		return ErrMissingExplanation
	}
	if !s.Tense.Valid() {
		return ErrInvalidTense
	}
	if !s.DirectObject.Valid() || !s.IndirectObject.Valid() {
		return ErrInvalidObjectCategory
	}
	if !s.Negation.Valid() {
		return ErrInvalidNegation
	}
	return nil
}

// SentenceParams are the grammatical parameters one problem's sentences share.
// The worker picks them once per problem, consistent with the verb's
// capabilities, and the prompt builder renders them into every prompt.
type SentenceParams struct {
	Pronoun        Pronoun        `json:"pronoun"`
	Tense          Tense          `json:"tense"`
	DirectObject   ObjectCategory `json:"direct_object"`
	IndirectObject ObjectCategory `json:"indirect_object"`
	Negation       Negation       `json:"negation"`
}
