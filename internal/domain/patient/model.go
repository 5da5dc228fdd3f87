package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/joansmith/allergylist/internal/platform/fhir"
)

// Patient maps to the patient table. AllergyStatus is the persisted
// documentation tag for the patient's allergy list; the allergy domain
// owns its semantics and rewrites it on every list save.
type Patient struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	FHIRID        string     `db:"fhir_id" json:"fhir_id"`
	Active        bool       `db:"active" json:"active"`
	MRN           string     `db:"mrn" json:"mrn"`
	FirstName     string     `db:"first_name" json:"first_name"`
	MiddleName    *string    `db:"middle_name" json:"middle_name,omitempty"`
	LastName      string     `db:"last_name" json:"last_name"`
	BirthDate     *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Gender        *string    `db:"gender" json:"gender,omitempty"`
	Deceased      bool       `db:"deceased" json:"deceased"`
	AllergyStatus string     `db:"allergy_status" json:"allergy_status"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

func (p *Patient) ToFHIR() map[string]interface{} {
	name := map[string]interface{}{
		"family": p.LastName,
		"given":  []string{p.FirstName},
	}
	if p.MiddleName != nil {
		name["given"] = []string{p.FirstName, *p.MiddleName}
	}
	result := map[string]interface{}{
		"resourceType": "Patient",
		"id":           p.FHIRID,
		"active":       p.Active,
		"name":         []map[string]interface{}{name},
		"identifier": []fhir.Identifier{{
			System: "urn:oid:mrn",
			Value:  p.MRN,
		}},
		"deceasedBoolean": p.Deceased,
		"meta":            fhir.Meta{LastUpdated: p.UpdatedAt},
	}
	if p.Gender != nil {
		result["gender"] = *p.Gender
	}
	if p.BirthDate != nil {
		result["birthDate"] = p.BirthDate.Format("2006-01-02")
	}
	return result
}
