package models

import (
	"time"
)

// Auxiliary is the auxiliary verb used to build compound tenses.
type Auxiliary string

const (
	AuxiliaryAvoir Auxiliary = "avoir"
	AuxiliaryEtre  Auxiliary = "être"
)

// VerbGroup is the French conjugation classification. Empty means unclassified.
type VerbGroup string

const (
	VerbGroupFirst  VerbGroup = "first_group"
	VerbGroupSecond VerbGroup = "second_group"
	VerbGroupThird  VerbGroup = "third_group"
)

// Verb is a French verb with its grammatical capabilities. The authoritative
// copy lives in storage; the verb cache holds non-owning snapshots.
type Verb struct {
	ID                 string     `json:"id"`
	Infinitive         string     `json:"infinitive"`
	Auxiliary          Auxiliary  `json:"auxiliary"`
	Reflexive          bool       `json:"reflexive"`
	TargetLanguageCode string     `json:"target_language_code"` // 3 lowercase letters, e.g. "eng"
	Translation        string     `json:"translation"`
	PastParticiple     string     `json:"past_participle"`
	PresentParticiple  string     `json:"present_participle"`
	Classification     VerbGroup  `json:"classification,omitempty"`
	IsIrregular        bool       `json:"is_irregular"`
	CanHaveCOD         bool       `json:"can_have_cod"`
	CanHaveCOI         bool       `json:"can_have_coi"`
	IsTest             bool       `json:"is_test"`
	TopicTags          []string   `json:"topic_tags,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	LastUsedAt         *time.Time `json:"last_used_at,omitempty"`
}

// Validate checks the invariants that storage uniqueness cannot express:
// non-empty string fields and a well-formed language code.
func (v *Verb) Validate() error {
	if v.Infinitive == "" || v.Translation == "" || v.PastParticiple == "" || v.PresentParticiple == "" {
		return ErrEmptyVerbField
	}
	if v.Auxiliary != AuxiliaryAvoir && v.Auxiliary != AuxiliaryEtre {
		return ErrInvalidAuxiliary
	}
	if len(v.TargetLanguageCode) != 3 {
		return ErrInvalidLanguageCode
	}
	for _, r := range v.TargetLanguageCode {
		if r < 'a' || r > 'z' {
			return ErrInvalidLanguageCode
		}
	}
	return nil
}

// IdentityKey returns the 5-tuple that storage enforces as unique.
func (v *Verb) IdentityKey() [5]string {
	reflexive := "f"
	if v.Reflexive {
		reflexive = "t"
	}
	return [5]string{v.Infinitive, string(v.Auxiliary), reflexive, v.TargetLanguageCode, v.Translation}
}

func NewVerb(id, infinitive string, auxiliary Auxiliary, reflexive bool, languageCode, translation string) *Verb {
	now := time.Now().UTC()
	return &Verb{
		ID:                 id,
		Infinitive:         infinitive,
		Auxiliary:          auxiliary,
		Reflexive:          reflexive,
		TargetLanguageCode: languageCode,
		Translation:        translation,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}
