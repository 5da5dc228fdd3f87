package terminology

import (
	"time"

	"github.com/google/uuid"
)

// Concept classes used by the allergy domain.
const (
	ClassDrug        = "drug"
	ClassFood        = "food"
	ClassEnvironment = "environment"
	ClassReaction    = "reaction"
	ClassSeverity    = "severity"
	ClassMisc        = "misc"
)

// OtherNonCodedUUID is the reserved concept meaning "no coded match; see
// free text". Allergen completion assigns it to free-text-only allergens.
// Seeded by migration; overridable through configuration.
const OtherNonCodedUUID = "5622b1a1-6a6b-46bd-b323-f5ea39b917b1"

// SystemConcepts is the code system URI for locally managed concepts.
const SystemConcepts = "http://example.org/fhir/CodeSystem/concepts"

// Concept is one entry in the controlled vocabulary.
type Concept struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Display   string    `db:"display" json:"display"`
	Class     string    `db:"class" json:"class"`
	SystemURI string    `db:"system_uri" json:"system_uri"`
	Retired   bool      `db:"retired" json:"retired"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

var validClasses = map[string]bool{
	ClassDrug: true, ClassFood: true, ClassEnvironment: true,
	ClassReaction: true, ClassSeverity: true, ClassMisc: true,
}

// LookupRequest represents a FHIR CodeSystem $lookup request.
type LookupRequest struct {
	System string `json:"system"`
	Code   string `json:"code"`
}

// LookupResponse represents a FHIR CodeSystem $lookup response.
type LookupResponse struct {
	ResourceType string            `json:"resourceType"`
	Parameter    []LookupParameter `json:"parameter"`
}

// LookupParameter is a name/value pair in a FHIR Parameters resource.
type LookupParameter struct {
	Name        string `json:"name"`
	ValueString string `json:"valueString,omitempty"`
	ValueCode   string `json:"valueCode,omitempty"`
}

// ValidateCodeRequest represents a FHIR CodeSystem $validate-code request.
type ValidateCodeRequest struct {
	System  string `json:"system"`
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
}

// ValidateCodeResponse represents a FHIR CodeSystem $validate-code response.
type ValidateCodeResponse struct {
	ResourceType string                  `json:"resourceType"`
	Parameter    []ValidateCodeParameter `json:"parameter"`
}

// ValidateCodeParameter is a name/value pair in a validate-code response.
type ValidateCodeParameter struct {
	Name         string `json:"name"`
	ValueBoolean *bool  `json:"valueBoolean,omitempty"`
	ValueString  string `json:"valueString,omitempty"`
}
