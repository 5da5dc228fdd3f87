package terminology

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joansmith/allergylist/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type conceptRepoPG struct{ pool *pgxpool.Pool }

func NewConceptRepoPG(pool *pgxpool.Pool) ConceptRepository { return &conceptRepoPG{pool: pool} }

func (r *conceptRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const conceptCols = `id, code, display, class, system_uri, retired, created_at, updated_at`

func (r *conceptRepoPG) scanConcept(row pgx.Row) (*Concept, error) {
	var c Concept
	err := row.Scan(&c.ID, &c.Code, &c.Display, &c.Class, &c.SystemURI, &c.Retired, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *conceptRepoPG) Create(ctx context.Context, c *Concept) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.SystemURI == "" {
		c.SystemURI = SystemConcepts
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO concept (id, code, display, class, system_uri)
		VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.Code, c.Display, c.Class, c.SystemURI)
	return err
}

func (r *conceptRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Concept, error) {
	return r.scanConcept(r.conn(ctx).QueryRow(ctx, `SELECT `+conceptCols+` FROM concept WHERE id = $1`, id))
}

func (r *conceptRepoPG) GetByCode(ctx context.Context, code string) (*Concept, error) {
	return r.scanConcept(r.conn(ctx).QueryRow(ctx, `SELECT `+conceptCols+` FROM concept WHERE code = $1 AND retired = false`, code))
}

func (r *conceptRepoPG) Search(ctx context.Context, query, class string, limit int) ([]*Concept, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + query + "%"
	var (
		rows pgx.Rows
		err  error
	)
	if class != "" {
		rows, err = r.conn(ctx).Query(ctx, `
			SELECT `+conceptCols+` FROM concept
			WHERE retired = false AND class = $2 AND (code ILIKE $1 OR display ILIKE $1)
			ORDER BY display LIMIT $3`, pattern, class, limit)
	} else {
		rows, err = r.conn(ctx).Query(ctx, `
			SELECT `+conceptCols+` FROM concept
			WHERE retired = false AND (code ILIKE $1 OR display ILIKE $1)
			ORDER BY display LIMIT $2`, pattern, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("concept search: %w", err)
	}
	defer rows.Close()
	var results []*Concept
	for rows.Next() {
		c, err := r.scanConcept(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}
