package allergy

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestList_NewListIsUnknown(t *testing.T) {
	l := NewList(uuid.New())
	if l.Size() != 0 {
		t.Errorf("expected empty list, got %d entries", l.Size())
	}
	if l.Status != StatusUnknown {
		t.Errorf("expected status %s, got %s", StatusUnknown, l.Status)
	}
}

func TestList_AddForcesSeeList(t *testing.T) {
	patient := uuid.New()
	l := NewList(patient)
	if err := l.ConfirmNoKnownAllergies(); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	l.Add(codedAllergy(patient))
	if l.Status != StatusSeeList {
		t.Errorf("expected status %s after add, got %s", StatusSeeList, l.Status)
	}
	if l.Size() != 1 {
		t.Errorf("expected 1 entry, got %d", l.Size())
	}
}

func TestList_Get(t *testing.T) {
	patient := uuid.New()
	l := storedList(patient, codedAllergy(patient), codedAllergy(patient))

	got, err := l.Get(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != l.Entries[1] {
		t.Error("wrong entry returned")
	}

	if _, err := l.Get(2); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := l.Get(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestList_RemoveOutOfRange(t *testing.T) {
	patient := uuid.New()
	l := storedList(patient, codedAllergy(patient))

	if err := l.Remove(1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := l.Remove(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	if l.Size() != 1 {
		t.Errorf("failed remove must not change the list, got %d entries", l.Size())
	}
}

func TestList_RemoveKeepsOrder(t *testing.T) {
	patient := uuid.New()
	first, second, third := codedAllergy(patient), codedAllergy(patient), codedAllergy(patient)
	l := storedList(patient, first, second, third)

	if err := l.Remove(1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if l.Size() != 2 {
		t.Fatalf("expected 2 entries, got %d", l.Size())
	}
	if l.Entries[0] != first || l.Entries[1] != third {
		t.Error("remaining entries out of order")
	}
	if l.Status != StatusSeeList {
		t.Errorf("expected status %s, got %s", StatusSeeList, l.Status)
	}
}

func TestList_RemoveLastResetsStatus(t *testing.T) {
	patient := uuid.New()
	l := storedList(patient, codedAllergy(patient))

	if err := l.Remove(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if l.Status != StatusUnknown {
		t.Errorf("expected status %s after emptying, got %s", StatusUnknown, l.Status)
	}
}

func TestList_ContainsMatchesOnContent(t *testing.T) {
	patient := uuid.New()
	entry := codedAllergy(patient, codedReaction())
	l := storedList(patient, entry)

	lookalike := entry.Clone()
	lookalike.ID = nil
	if !l.Contains(lookalike) {
		t.Error("membership should match on content, not identity")
	}

	edited := entry.Clone()
	edited.Comment = strp("new comment")
	if l.Contains(edited) {
		t.Error("edited content should not be reported as present")
	}
}

func TestList_ConfirmNoKnownAllergies(t *testing.T) {
	patient := uuid.New()

	l := NewList(patient)
	if err := l.ConfirmNoKnownAllergies(); err != nil {
		t.Fatalf("confirm on empty list: %v", err)
	}
	if l.Status != StatusNoKnownAllergies {
		t.Errorf("expected status %s, got %s", StatusNoKnownAllergies, l.Status)
	}

	populated := storedList(patient, codedAllergy(patient))
	if err := populated.ConfirmNoKnownAllergies(); !errors.Is(err, ErrListNotEmpty) {
		t.Errorf("expected ErrListNotEmpty, got %v", err)
	}
	if populated.Status != StatusSeeList {
		t.Errorf("failed confirm must not change the status, got %s", populated.Status)
	}
}
