package terminology

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type mockConceptRepo struct {
	store map[uuid.UUID]*Concept
}

func newMockConceptRepo() *mockConceptRepo {
	return &mockConceptRepo{store: make(map[uuid.UUID]*Concept)}
}

func (m *mockConceptRepo) Create(_ context.Context, c *Concept) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.SystemURI == "" {
		c.SystemURI = SystemConcepts
	}
	m.store[c.ID] = c
	return nil
}

func (m *mockConceptRepo) GetByID(_ context.Context, id uuid.UUID) (*Concept, error) {
	c, ok := m.store[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return c, nil
}

func (m *mockConceptRepo) GetByCode(_ context.Context, code string) (*Concept, error) {
	for _, c := range m.store {
		if c.Code == code && !c.Retired {
			return c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockConceptRepo) Search(_ context.Context, query, class string, limit int) ([]*Concept, error) {
	var results []*Concept
	q := strings.ToLower(query)
	for _, c := range m.store {
		if c.Retired {
			continue
		}
		if class != "" && c.Class != class {
			continue
		}
		if strings.Contains(strings.ToLower(c.Display), q) || strings.Contains(strings.ToLower(c.Code), q) {
			results = append(results, c)
		}
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

func newTestService() *Service {
	repo := newMockConceptRepo()
	seed := []*Concept{
		{Code: "PENICILLIN", Display: "Penicillin", Class: ClassDrug},
		{Code: "PEANUT", Display: "Peanut", Class: ClassFood},
		{Code: "DUST", Display: "Dust mites", Class: ClassEnvironment},
		{Code: "RASH", Display: "Rash", Class: ClassReaction},
		{Code: "SEVERE", Display: "Severe", Class: ClassSeverity},
		{ID: uuid.MustParse(OtherNonCodedUUID), Code: "OTHER", Display: "Other non-coded", Class: ClassMisc},
	}
	for _, c := range seed {
		if err := repo.Create(context.Background(), c); err != nil {
			panic(fmt.Sprintf("seed concept %s: %v", c.Code, err))
		}
	}
	return NewService(repo)
}

func TestService_CreateConcept(t *testing.T) {
	svc := newTestService()

	c := &Concept{Code: "LATEX", Display: "Latex", Class: ClassEnvironment}
	if err := svc.CreateConcept(context.Background(), c); err != nil {
		t.Fatalf("CreateConcept failed: %v", err)
	}
	if c.ID == uuid.Nil {
		t.Error("expected generated id")
	}

	got, err := svc.GetConceptByCode(context.Background(), "LATEX")
	if err != nil {
		t.Fatalf("GetConceptByCode failed: %v", err)
	}
	if got.Display != "Latex" {
		t.Errorf("display = %q, want Latex", got.Display)
	}
}

func TestService_CreateConcept_Validation(t *testing.T) {
	svc := newTestService()

	tests := []struct {
		name    string
		concept *Concept
	}{
		{"missing code", &Concept{Display: "Latex"}},
		{"missing display", &Concept{Code: "LATEX"}},
		{"invalid class", &Concept{Code: "LATEX", Display: "Latex", Class: "galaxy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.CreateConcept(context.Background(), tt.concept); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestService_CreateConcept_DefaultClass(t *testing.T) {
	svc := newTestService()

	c := &Concept{Code: "MISC1", Display: "Miscellaneous"}
	if err := svc.CreateConcept(context.Background(), c); err != nil {
		t.Fatalf("CreateConcept failed: %v", err)
	}
	if c.Class != ClassMisc {
		t.Errorf("class = %q, want %q", c.Class, ClassMisc)
	}
}

func TestService_SearchConcepts(t *testing.T) {
	svc := newTestService()

	results, err := svc.SearchConcepts(context.Background(), "pea", "", 20)
	if err != nil {
		t.Fatalf("SearchConcepts failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Code != "PEANUT" {
		t.Errorf("code = %q, want PEANUT", results[0].Code)
	}
}

func TestService_SearchConcepts_ClassFilter(t *testing.T) {
	svc := newTestService()

	results, err := svc.SearchConcepts(context.Background(), "e", ClassSeverity, 20)
	if err != nil {
		t.Fatalf("SearchConcepts failed: %v", err)
	}
	for _, c := range results {
		if c.Class != ClassSeverity {
			t.Errorf("unexpected class %q in filtered results", c.Class)
		}
	}
}

func TestService_SearchConcepts_InvalidClass(t *testing.T) {
	svc := newTestService()

	if _, err := svc.SearchConcepts(context.Background(), "pea", "galaxy", 20); err == nil {
		t.Error("expected error for invalid class")
	}
}

func TestService_SearchConcepts_EmptyQuery(t *testing.T) {
	svc := newTestService()

	if _, err := svc.SearchConcepts(context.Background(), "", "", 20); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestService_OtherNonCoded(t *testing.T) {
	svc := newTestService()

	c, err := svc.OtherNonCoded(context.Background())
	if err != nil {
		t.Fatalf("OtherNonCoded failed: %v", err)
	}
	if c.ID.String() != OtherNonCodedUUID {
		t.Errorf("id = %s, want %s", c.ID, OtherNonCodedUUID)
	}
}

func TestService_Lookup(t *testing.T) {
	svc := newTestService()

	resp, err := svc.Lookup(context.Background(), &LookupRequest{
		System: SystemConcepts,
		Code:   "PENICILLIN",
	})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if resp.ResourceType != "Parameters" {
		t.Errorf("resourceType = %q, want Parameters", resp.ResourceType)
	}

	var display, class string
	for _, p := range resp.Parameter {
		switch p.Name {
		case "display":
			display = p.ValueString
		case "class":
			class = p.ValueCode
		}
	}
	if display != "Penicillin" {
		t.Errorf("display = %q, want Penicillin", display)
	}
	if class != ClassDrug {
		t.Errorf("class = %q, want %q", class, ClassDrug)
	}
}

func TestService_Lookup_Errors(t *testing.T) {
	svc := newTestService()

	tests := []struct {
		name string
		req  *LookupRequest
	}{
		{"missing system", &LookupRequest{Code: "PENICILLIN"}},
		{"missing code", &LookupRequest{System: SystemConcepts}},
		{"unknown system", &LookupRequest{System: "http://loinc.org", Code: "1234-5"}},
		{"unknown code", &LookupRequest{System: SystemConcepts, Code: "NOPE"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Lookup(context.Background(), tt.req); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestService_ValidateCode_Valid(t *testing.T) {
	svc := newTestService()

	resp, err := svc.ValidateCode(context.Background(), &ValidateCodeRequest{
		System: SystemConcepts,
		Code:   "RASH",
	})
	if err != nil {
		t.Fatalf("ValidateCode failed: %v", err)
	}

	var result *bool
	var display string
	for _, p := range resp.Parameter {
		switch p.Name {
		case "result":
			result = p.ValueBoolean
		case "display":
			display = p.ValueString
		}
	}
	if result == nil || !*result {
		t.Error("expected result=true")
	}
	if display != "Rash" {
		t.Errorf("display = %q, want Rash", display)
	}
}

func TestService_ValidateCode_Invalid(t *testing.T) {
	svc := newTestService()

	resp, err := svc.ValidateCode(context.Background(), &ValidateCodeRequest{
		System: SystemConcepts,
		Code:   "NOPE",
	})
	if err != nil {
		t.Fatalf("ValidateCode failed: %v", err)
	}

	var result *bool
	var message string
	for _, p := range resp.Parameter {
		switch p.Name {
		case "result":
			result = p.ValueBoolean
		case "message":
			message = p.ValueString
		}
	}
	if result == nil || *result {
		t.Error("expected result=false")
	}
	if message == "" {
		t.Error("expected a message for unknown code")
	}
}
