package terminology

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service provides vocabulary lookup and validation operations.
type Service struct {
	concepts ConceptRepository
}

// NewService creates a new terminology service.
func NewService(concepts ConceptRepository) *Service {
	return &Service{concepts: concepts}
}

// CreateConcept registers a new vocabulary entry.
func (s *Service) CreateConcept(ctx context.Context, c *Concept) error {
	if c.Code == "" {
		return fmt.Errorf("code is required")
	}
	if c.Display == "" {
		return fmt.Errorf("display is required")
	}
	if c.Class == "" {
		c.Class = ClassMisc
	}
	if !validClasses[c.Class] {
		return fmt.Errorf("invalid concept class: %s", c.Class)
	}
	return s.concepts.Create(ctx, c)
}

// GetConcept resolves a coded reference.
func (s *Service) GetConcept(ctx context.Context, id uuid.UUID) (*Concept, error) {
	return s.concepts.GetByID(ctx, id)
}

// GetConceptByCode looks up a single concept by its code.
func (s *Service) GetConceptByCode(ctx context.Context, code string) (*Concept, error) {
	if code == "" {
		return nil, fmt.Errorf("code is required")
	}
	return s.concepts.GetByCode(ctx, code)
}

// SearchConcepts searches the vocabulary by display text, optionally
// restricted to one class.
func (s *Service) SearchConcepts(ctx context.Context, query, class string, limit int) ([]*Concept, error) {
	if query == "" {
		return nil, fmt.Errorf("query parameter is required")
	}
	if class != "" && !validClasses[class] {
		return nil, fmt.Errorf("invalid concept class: %s", class)
	}
	if limit <= 0 {
		limit = 20
	}
	return s.concepts.Search(ctx, query, class, limit)
}

// OtherNonCoded returns the reserved concept standing in for allergens that
// have no coded match.
func (s *Service) OtherNonCoded(ctx context.Context) (*Concept, error) {
	return s.concepts.GetByID(ctx, uuid.MustParse(OtherNonCodedUUID))
}

// Lookup implements the FHIR CodeSystem $lookup operation against the local
// vocabulary, returning a Parameters resource.
func (s *Service) Lookup(ctx context.Context, req *LookupRequest) (*LookupResponse, error) {
	if req.System == "" {
		return nil, fmt.Errorf("system is required")
	}
	if req.Code == "" {
		return nil, fmt.Errorf("code is required")
	}
	if req.System != SystemConcepts {
		return nil, fmt.Errorf("unsupported code system: %s", req.System)
	}

	c, err := s.concepts.GetByCode(ctx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("code not found: %s", req.Code)
	}

	return &LookupResponse{
		ResourceType: "Parameters",
		Parameter: []LookupParameter{
			{Name: "name", ValueString: c.Display},
			{Name: "display", ValueString: c.Display},
			{Name: "class", ValueCode: c.Class},
		},
	}, nil
}

// ValidateCode implements the FHIR CodeSystem $validate-code operation.
func (s *Service) ValidateCode(ctx context.Context, req *ValidateCodeRequest) (*ValidateCodeResponse, error) {
	if req.System == "" {
		return nil, fmt.Errorf("system is required")
	}
	if req.Code == "" {
		return nil, fmt.Errorf("code is required")
	}
	if req.System != SystemConcepts {
		return nil, fmt.Errorf("unsupported code system: %s", req.System)
	}

	var display string
	var found bool
	if c, err := s.concepts.GetByCode(ctx, req.Code); err == nil {
		found = true
		display = c.Display
	}

	result := found
	params := []ValidateCodeParameter{
		{Name: "result", ValueBoolean: &result},
	}
	if found {
		params = append(params, ValidateCodeParameter{Name: "display", ValueString: display})
	} else {
		params = append(params, ValidateCodeParameter{Name: "message", ValueString: fmt.Sprintf("code '%s' not found in system '%s'", req.Code, req.System)})
	}

	return &ValidateCodeResponse{
		ResourceType: "Parameters",
		Parameter:    params,
	}, nil
}
