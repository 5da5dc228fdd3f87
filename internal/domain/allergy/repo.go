package allergy

import (
	"context"

	"github.com/google/uuid"
)

type AllergyRepository interface {
	ListActiveByPatient(ctx context.Context, patientID uuid.UUID) ([]*Allergy, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Allergy, error)
	GetByFHIRID(ctx context.Context, fhirID string) (*Allergy, error)
	Insert(ctx context.Context, a *Allergy) error
	Void(ctx context.Context, id uuid.UUID, reason string) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Allergy, int, error)
}

// StatusStore reads and writes the per-patient allergy status tag. The
// patient domain provides the implementation.
type StatusStore interface {
	AllergyStatus(ctx context.Context, patientID uuid.UUID) (string, error)
	SetAllergyStatus(ctx context.Context, patientID uuid.UUID, status string) error
}

// TxRunner executes fn atomically; every statement fn issues through the
// derived context commits or rolls back as one unit.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error
