package allergy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	allergies     AllergyRepository
	status        StatusStore
	tx            TxRunner
	otherNonCoded uuid.UUID
}

func NewService(allergies AllergyRepository, status StatusStore, tx TxRunner, otherNonCoded uuid.UUID) *Service {
	return &Service{
		allergies:     allergies,
		status:        status,
		tx:            tx,
		otherNonCoded: otherNonCoded,
	}
}

// GetAllergies loads the patient's active allergy list. The status tag is
// recomputed on the way out: entries present always reads as see-list, an
// empty list carries whatever tag the patient record holds.
func (s *Service) GetAllergies(ctx context.Context, patientID uuid.UUID) (*List, error) {
	status, err := s.status.AllergyStatus(ctx, patientID)
	if err != nil {
		return nil, err
	}
	entries, err := s.allergies.ListActiveByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	list := NewList(patientID)
	list.Entries = entries
	list.Status = normalizeStatus(status, len(entries))
	return list, nil
}

// SetAllergies reconciles the candidate list against the stored one and
// applies the outcome atomically: every retirement, every insert, and the
// status update commit or roll back together. Stored records are never
// updated in place and never deleted.
func (s *Service) SetAllergies(ctx context.Context, patientID uuid.UUID, candidate *List) error {
	if candidate == nil {
		return ErrCandidateRequired
	}
	if candidate.PatientID != uuid.Nil && candidate.PatientID != patientID {
		return ErrPatientMismatch
	}
	if candidate.Status != "" && !validStatuses[candidate.Status] {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, candidate.Status)
	}

	stored, err := s.GetAllergies(ctx, patientID)
	if err != nil {
		return err
	}

	res, err := Reconcile(stored, candidate, s.otherNonCoded)
	if err != nil {
		return err
	}

	return s.tx(ctx, func(ctx context.Context) error {
		for _, v := range res.Voided {
			if v.ID == nil {
				continue
			}
			if err := s.allergies.Void(ctx, *v.ID, strVal(v.VoidReason)); err != nil {
				return fmt.Errorf("void allergy %s: %w", v.ID, err)
			}
		}
		for _, a := range res.Active {
			if a.ID != nil {
				continue
			}
			a.PatientID = patientID
			if err := s.allergies.Insert(ctx, a); err != nil {
				return fmt.Errorf("insert allergy: %w", err)
			}
		}
		return s.status.SetAllergyStatus(ctx, patientID, res.Status)
	})
}

// GetAllergy returns one active allergy record by id.
func (s *Service) GetAllergy(ctx context.Context, id uuid.UUID) (*Allergy, error) {
	return s.allergies.GetByID(ctx, id)
}

func (s *Service) GetAllergyByFHIRID(ctx context.Context, fhirID string) (*Allergy, error) {
	return s.allergies.GetByFHIRID(ctx, fhirID)
}

func (s *Service) SearchAllergies(ctx context.Context, params map[string]string, limit, offset int) ([]*Allergy, int, error) {
	return s.allergies.Search(ctx, params, limit, offset)
}

func normalizeStatus(stored string, entryCount int) string {
	if entryCount > 0 {
		return StatusSeeList
	}
	if validStatuses[stored] && stored != StatusSeeList {
		return stored
	}
	return StatusUnknown
}
