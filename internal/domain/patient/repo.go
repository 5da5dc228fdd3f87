package patient

import (
	"context"

	"github.com/google/uuid"
)

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByFHIRID(ctx context.Context, fhirID string) (*Patient, error)
	GetByMRN(ctx context.Context, mrn string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error)
	// Allergy status tag, consumed by the allergy domain.
	AllergyStatus(ctx context.Context, patientID uuid.UUID) (string, error)
	SetAllergyStatus(ctx context.Context, patientID uuid.UUID, status string) error
}
