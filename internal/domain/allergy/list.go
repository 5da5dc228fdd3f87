package allergy

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Allergy documentation status for a patient.
const (
	StatusUnknown          = "unknown"
	StatusSeeList          = "see-list"
	StatusNoKnownAllergies = "no-known-allergies"
)

var validStatuses = map[string]bool{
	StatusUnknown: true, StatusSeeList: true, StatusNoKnownAllergies: true,
}

var (
	// ErrIndexOutOfRange signals container misuse by the caller.
	ErrIndexOutOfRange = errors.New("allergy index out of range")

	// ErrListNotEmpty is returned when confirming no known allergies
	// while active entries still exist.
	ErrListNotEmpty = errors.New("cannot confirm no known allergies while entries exist")
)

// List holds the ordered active allergy entries for one patient together
// with the status tag. Structural mutations keep the two consistent:
// entries present forces see-list, an emptied list drops back to unknown.
// The container is purely in-memory.
type List struct {
	PatientID uuid.UUID  `json:"patient_id,omitempty"`
	Status    string     `json:"status"`
	Entries   []*Allergy `json:"entries"`
}

func NewList(patientID uuid.UUID) *List {
	return &List{PatientID: patientID, Status: StatusUnknown}
}

func (l *List) Size() int { return len(l.Entries) }

// Add appends an entry. A populated list is always see-list.
func (l *List) Add(a *Allergy) {
	l.Entries = append(l.Entries, a)
	l.Status = StatusSeeList
}

// Get returns the entry at index i.
func (l *List) Get(i int) (*Allergy, error) {
	if i < 0 || i >= len(l.Entries) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(l.Entries))
	}
	return l.Entries[i], nil
}

// Remove drops the entry at index i. Removal here is an in-memory edit only;
// whether the stored record gets voided is decided at save time. Removing
// the last entry resets the status to unknown.
func (l *List) Remove(i int) error {
	if i < 0 || i >= len(l.Entries) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(l.Entries))
	}
	l.Entries = append(l.Entries[:i], l.Entries[i+1:]...)
	if len(l.Entries) == 0 && l.Status == StatusSeeList {
		l.Status = StatusUnknown
	}
	return nil
}

// Contains reports value membership: whether any entry carries the same
// clinical content as a. Callers use it to check which records survived
// a save.
func (l *List) Contains(a *Allergy) bool {
	for _, e := range l.Entries {
		if e.HasSameValues(a) {
			return true
		}
	}
	return false
}

// ConfirmNoKnownAllergies records the explicit confirmation that the patient
// has no allergies. Only an empty list can carry that status.
func (l *List) ConfirmNoKnownAllergies() error {
	if len(l.Entries) > 0 {
		return ErrListNotEmpty
	}
	l.Status = StatusNoKnownAllergies
	return nil
}
