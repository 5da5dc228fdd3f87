package allergy

import (
	"time"

	"github.com/google/uuid"

	"github.com/joansmith/allergylist/internal/platform/fhir"
)

// AllergenType classifies what triggers the reaction.
type AllergenType string

const (
	AllergenDrug        AllergenType = "drug"
	AllergenFood        AllergenType = "food"
	AllergenEnvironment AllergenType = "environment"
)

var validAllergenTypes = map[AllergenType]bool{
	AllergenDrug: true, AllergenFood: true, AllergenEnvironment: true,
}

// Allergen identifies the trigger of an allergy. Coded points at a concept;
// NonCoded carries free text when no coded match exists. A free-text-only
// allergen is stored with Coded set to the reserved other-non-coded concept.
type Allergen struct {
	Type     AllergenType `db:"allergen_type" json:"allergen_type"`
	Coded    *uuid.UUID   `db:"coded_allergen" json:"coded_allergen,omitempty"`
	NonCoded *string      `db:"non_coded_allergen" json:"non_coded_allergen,omitempty"`
}

// IsNonCoded reports whether the allergen is the free-text shorthand:
// the coded reference is the given sentinel concept and a description exists.
func (a Allergen) IsNonCoded(otherNonCoded uuid.UUID) bool {
	return a.Coded != nil && *a.Coded == otherNonCoded && a.NonCoded != nil && *a.NonCoded != ""
}

func (a Allergen) sameAs(b Allergen) bool {
	return a.Type == b.Type && uuidPtrEqual(a.Coded, b.Coded) && strPtrEqual(a.NonCoded, b.NonCoded)
}

// Reaction is one documented response belonging to a single allergy entry.
// It has no independent lifecycle; the row id exists for storage only and
// never participates in comparison.
type Reaction struct {
	ID       uuid.UUID  `db:"id" json:"id"`
	Coded    *uuid.UUID `db:"reaction_concept" json:"reaction_concept,omitempty"`
	NonCoded *string    `db:"reaction_non_coded" json:"reaction_non_coded,omitempty"`
}

// reactionKey is the comparison identity of a reaction: its content only.
type reactionKey struct {
	coded       uuid.UUID
	hasCoded    bool
	nonCoded    string
	hasNonCoded bool
}

func (r Reaction) key() reactionKey {
	var k reactionKey
	if r.Coded != nil {
		k.coded, k.hasCoded = *r.Coded, true
	}
	if r.NonCoded != nil {
		k.nonCoded, k.hasNonCoded = *r.NonCoded, true
	}
	return k
}

// Allergy maps to the allergy table. ID is the stable identity assigned at
// first persistence; it stays nil on entries the caller has just added.
// Voided and VoidReason are written during reconciliation, never by callers.
type Allergy struct {
	ID         *uuid.UUID `db:"id" json:"id,omitempty"`
	FHIRID     string     `db:"fhir_id" json:"fhir_id,omitempty"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	Allergen   Allergen   `json:"allergen"`
	Severity   *uuid.UUID `db:"severity_concept" json:"severity_concept,omitempty"`
	Comment    *string    `db:"comment" json:"comment,omitempty"`
	Reactions  []Reaction `json:"reactions,omitempty"`
	Voided     bool       `db:"voided" json:"voided"`
	VoidReason *string    `db:"void_reason" json:"void_reason,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// HasSameValues compares the clinically meaningful content of two entries:
// allergen, severity, comment, and the reaction set. Reaction comparison is
// order-independent but exact in content and cardinality. Identity, voiding
// state, and timestamps are ignored.
func (a *Allergy) HasSameValues(other *Allergy) bool {
	allergenEqual := a.Allergen.sameAs(other.Allergen)
	severityEqual := uuidPtrEqual(a.Severity, other.Severity)
	commentEqual := strPtrEqual(a.Comment, other.Comment)
	reactionsEqual := sameReactionSet(a.Reactions, other.Reactions)
	return allergenEqual && severityEqual && commentEqual && reactionsEqual
}

func sameReactionSet(a, b []Reaction) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[reactionKey]int, len(a))
	for _, r := range a {
		counts[r.key()]++
	}
	for _, r := range b {
		counts[r.key()]--
		if counts[r.key()] < 0 {
			return false
		}
	}
	return true
}

// CompleteAllergen fills in the coded reference for free-text-only allergens
// so every persisted entry resolves to a concept.
func (a *Allergy) CompleteAllergen(otherNonCoded uuid.UUID) {
	if a.Allergen.Coded == nil && a.Allergen.NonCoded != nil && *a.Allergen.NonCoded != "" {
		sentinel := otherNonCoded
		a.Allergen.Coded = &sentinel
	}
}

// Clone returns a deep copy. Reconciliation never mutates its inputs.
func (a *Allergy) Clone() *Allergy {
	dup := *a
	if a.ID != nil {
		id := *a.ID
		dup.ID = &id
	}
	dup.Allergen.Coded = uuidPtrCopy(a.Allergen.Coded)
	dup.Allergen.NonCoded = strPtrCopy(a.Allergen.NonCoded)
	dup.Severity = uuidPtrCopy(a.Severity)
	dup.Comment = strPtrCopy(a.Comment)
	dup.VoidReason = strPtrCopy(a.VoidReason)
	if a.Reactions != nil {
		dup.Reactions = make([]Reaction, len(a.Reactions))
		for i, r := range a.Reactions {
			dup.Reactions[i] = Reaction{ID: r.ID, Coded: uuidPtrCopy(r.Coded), NonCoded: strPtrCopy(r.NonCoded)}
		}
	}
	return &dup
}

func (a *Allergy) ToFHIR() map[string]interface{} {
	clinicalStatus := "active"
	if a.Voided {
		clinicalStatus = "inactive"
	}
	result := map[string]interface{}{
		"resourceType": "AllergyIntolerance",
		"id":           a.FHIRID,
		"patient":      fhir.Reference{Reference: fhir.FormatReference("Patient", a.PatientID.String())},
		"category":     []string{string(a.Allergen.Type)},
		"clinicalStatus": fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System: "http://terminology.hl7.org/CodeSystem/allergyintolerance-clinical",
				Code:   clinicalStatus,
			}},
		},
		"meta": fhir.Meta{LastUpdated: a.UpdatedAt},
	}
	code := fhir.CodeableConcept{Text: strVal(a.Allergen.NonCoded)}
	if a.Allergen.Coded != nil {
		code.Coding = []fhir.Coding{{Code: a.Allergen.Coded.String()}}
	}
	result["code"] = code
	if a.Comment != nil {
		result["note"] = []map[string]interface{}{{"text": *a.Comment}}
	}
	if len(a.Reactions) > 0 {
		reactions := make([]map[string]interface{}, 0, len(a.Reactions))
		for _, r := range a.Reactions {
			manifestation := fhir.CodeableConcept{Text: strVal(r.NonCoded)}
			if r.Coded != nil {
				manifestation.Coding = []fhir.Coding{{Code: r.Coded.String()}}
			}
			reactions = append(reactions, map[string]interface{}{
				"manifestation": []fhir.CodeableConcept{manifestation},
			})
		}
		result["reaction"] = reactions
	}
	return result
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func uuidPtrCopy(p *uuid.UUID) *uuid.UUID {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func strPtrCopy(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
