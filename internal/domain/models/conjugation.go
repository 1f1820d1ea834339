package models

// Tense is a French tense the generator can target.
type Tense string

const (
	TensePresent        Tense = "présent"
	TenseImparfait      Tense = "imparfait"
	TenseFutur          Tense = "futur"
	TensePasseCompose   Tense = "passé composé"
	TensePlusQueParfait Tense = "plus-que-parfait"
)

// AllTenses lists every tense the generator may pick from.
var AllTenses = []Tense{
	TensePresent,
	TenseImparfait,
	TenseFutur,
	TensePasseCompose,
	TensePlusQueParfait,
}

// IsCompound reports whether the tense is built with an auxiliary + past
// participle (passé composé, plus-que-parfait).
func (t Tense) IsCompound() bool {
	return t == TensePasseCompose || t == TensePlusQueParfait
}

// Valid reports whether t is a known tense.
func (t Tense) Valid() bool {
	for _, known := range AllTenses {
		if t == known {
			return true
		}
	}
	return false
}

// Conjugation holds the six person forms of one (infinitive, auxiliary,
// reflexive, tense) combination. Missing forms (defective verbs) are nil.
type Conjugation struct {
	ID               string    `json:"id"`
	Infinitive       string    `json:"infinitive"`
	Auxiliary        Auxiliary `json:"auxiliary"`
	Reflexive        bool      `json:"reflexive"`
	Tense            Tense     `json:"tense"`
	FirstSingular    *string   `json:"first_singular,omitempty"`
	SecondSingular   *string   `json:"second_singular,omitempty"`
	ThirdSingular    *string   `json:"third_singular,omitempty"`
	FirstPlural      *string   `json:"first_plural,omitempty"`
	SecondPlural     *string   `json:"second_plural,omitempty"`
	ThirdPlural      *string   `json:"third_plural,omitempty"`
}

// FormFor returns the conjugated form for a pronoun, or nil when the verb is
// defective for that person.
func (c *Conjugation) FormFor(pronoun Pronoun) *string {
	switch pronoun {
	case PronounJe:
		return c.FirstSingular
	case PronounTu:
		return c.SecondSingular
	case PronounIl, PronounElle, PronounOn:
		return c.ThirdSingular
	case PronounNous:
		return c.FirstPlural
	case PronounVous:
		return c.SecondPlural
	case PronounIls, PronounElles:
		return c.ThirdPlural
	}
	return nil
}
