package allergy

import (
	"errors"

	"github.com/google/uuid"
)

// ErrPatientMismatch is returned when a candidate list references a patient
// other than the stored list's owner. Caller bug, surfaced immediately.
var ErrPatientMismatch = errors.New("allergy list does not belong to the target patient")

// Validation errors returned before any persistence work starts.
var (
	ErrCandidateRequired = errors.New("candidate list is required")
	ErrInvalidStatus     = errors.New("invalid allergy status")
)

// Void reasons written on retired entries.
const (
	VoidReasonEdited  = "superseded by edited entry"
	VoidReasonRemoved = "removed from allergy list"
)

// Result is the outcome of reconciling a candidate list against the stored
// one. Voided holds copies of the stored entries to retire, with Voided and
// VoidReason set. Active holds the entries that make up the patient's list
// afterwards; entries without an ID are new and need to be persisted.
type Result struct {
	Voided []*Allergy
	Active []*Allergy
	Status string
}

// Reconcile maps (stored, candidate) to the set of entries to retire, the
// resulting active set, and the final status. Edits are never applied in
// place: any entry whose content differs from its stored version retires the
// original and persists the edited content as a brand-new record, so history
// is a chain of immutable versions.
//
// The computation is pure. Neither input list is mutated, no I/O happens,
// and the same inputs always produce the same result, so a failed save can
// simply be recomputed and retried by the caller.
func Reconcile(stored, candidate *List, otherNonCoded uuid.UUID) (*Result, error) {
	if candidate.PatientID != uuid.Nil && stored.PatientID != uuid.Nil &&
		candidate.PatientID != stored.PatientID {
		return nil, ErrPatientMismatch
	}

	byID := make(map[uuid.UUID]*Allergy, len(stored.Entries))
	for _, s := range stored.Entries {
		if s.ID != nil {
			byID[*s.ID] = s
		}
	}

	res := &Result{}
	matched := make(map[uuid.UUID]bool, len(candidate.Entries))

	for _, c := range candidate.Entries {
		if c.ID != nil {
			if s, ok := byID[*c.ID]; ok {
				matched[*c.ID] = true
				if s.HasSameValues(c) {
					res.Active = append(res.Active, s)
					continue
				}
				res.Voided = append(res.Voided, retired(s, VoidReasonEdited))
				res.Active = append(res.Active, fresh(c, otherNonCoded))
				continue
			}
		}
		res.Active = append(res.Active, fresh(c, otherNonCoded))
	}

	// Stored entries the candidate no longer carries. An entry that was both
	// edited and dropped shows up here once, as a single retirement.
	for _, s := range stored.Entries {
		if s.ID != nil && matched[*s.ID] {
			continue
		}
		res.Voided = append(res.Voided, retired(s, VoidReasonRemoved))
	}

	res.Status = deriveStatus(len(res.Active), candidate.Status)
	return res, nil
}

// deriveStatus computes the final status. Entries present always means
// see-list, whatever the caller set. An empty outcome takes the candidate's
// explicit no-known-allergies confirmation, or falls back to unknown.
func deriveStatus(activeCount int, candidateStatus string) string {
	if activeCount > 0 {
		return StatusSeeList
	}
	if candidateStatus == StatusNoKnownAllergies {
		return StatusNoKnownAllergies
	}
	return StatusUnknown
}

// retired returns a copy of s marked for retirement.
func retired(s *Allergy, reason string) *Allergy {
	dup := s.Clone()
	dup.Voided = true
	dup.VoidReason = &reason
	return dup
}

// fresh returns a copy of c prepared for persistence as a new record:
// identity stripped and free-text-only allergens completed with the
// other-non-coded concept.
func fresh(c *Allergy, otherNonCoded uuid.UUID) *Allergy {
	dup := c.Clone()
	dup.ID = nil
	dup.FHIRID = ""
	dup.Voided = false
	dup.VoidReason = nil
	dup.CompleteAllergen(otherNonCoded)
	return dup
}
