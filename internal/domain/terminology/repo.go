package terminology

import (
	"context"

	"github.com/google/uuid"
)

// ConceptRepository provides access to the controlled vocabulary.
type ConceptRepository interface {
	Create(ctx context.Context, c *Concept) error
	GetByID(ctx context.Context, id uuid.UUID) (*Concept, error)
	GetByCode(ctx context.Context, code string) (*Concept, error)
	Search(ctx context.Context, query, class string, limit int) ([]*Concept, error)
}
