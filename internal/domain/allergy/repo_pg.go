package allergy

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joansmith/allergylist/internal/platform/db"
	"github.com/joansmith/allergylist/internal/platform/fhir"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type allergyRepoPG struct{ pool *pgxpool.Pool }

func NewAllergyRepoPG(pool *pgxpool.Pool) AllergyRepository {
	return &allergyRepoPG{pool: pool}
}

func (r *allergyRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const allergyCols = `id, fhir_id, patient_id, allergen_type, coded_allergen, non_coded_allergen,
	severity_concept, comment, voided, void_reason, created_at, updated_at`

func (r *allergyRepoPG) scanAllergy(row pgx.Row) (*Allergy, error) {
	var a Allergy
	var id uuid.UUID
	err := row.Scan(&id, &a.FHIRID, &a.PatientID, &a.Allergen.Type, &a.Allergen.Coded, &a.Allergen.NonCoded,
		&a.Severity, &a.Comment, &a.Voided, &a.VoidReason, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.ID = &id
	return &a, nil
}

func (r *allergyRepoPG) loadReactions(ctx context.Context, a *Allergy) error {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, reaction_concept, reaction_non_coded
		FROM allergy_reaction WHERE allergy_id = $1 ORDER BY id`, *a.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var re Reaction
		if err := rows.Scan(&re.ID, &re.Coded, &re.NonCoded); err != nil {
			return err
		}
		a.Reactions = append(a.Reactions, re)
	}
	return rows.Err()
}

func (r *allergyRepoPG) ListActiveByPatient(ctx context.Context, patientID uuid.UUID) ([]*Allergy, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+allergyCols+` FROM allergy
		WHERE patient_id = $1 AND voided = false
		ORDER BY created_at, id`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Allergy
	for rows.Next() {
		a, err := r.scanAllergy(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, a := range items {
		if err := r.loadReactions(ctx, a); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (r *allergyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Allergy, error) {
	a, err := r.scanAllergy(r.conn(ctx).QueryRow(ctx, `SELECT `+allergyCols+` FROM allergy WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadReactions(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *allergyRepoPG) GetByFHIRID(ctx context.Context, fhirID string) (*Allergy, error) {
	a, err := r.scanAllergy(r.conn(ctx).QueryRow(ctx, `SELECT `+allergyCols+` FROM allergy WHERE fhir_id = $1`, fhirID))
	if err != nil {
		return nil, err
	}
	if err := r.loadReactions(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *allergyRepoPG) Insert(ctx context.Context, a *Allergy) error {
	id := uuid.New()
	a.ID = &id
	if a.FHIRID == "" {
		a.FHIRID = id.String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO allergy (id, fhir_id, patient_id, allergen_type, coded_allergen, non_coded_allergen,
			severity_concept, comment)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.FHIRID, a.PatientID, a.Allergen.Type, a.Allergen.Coded, a.Allergen.NonCoded,
		a.Severity, a.Comment)
	if err != nil {
		return err
	}
	for i := range a.Reactions {
		re := &a.Reactions[i]
		re.ID = uuid.New()
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO allergy_reaction (id, allergy_id, reaction_concept, reaction_non_coded)
			VALUES ($1,$2,$3,$4)`,
			re.ID, a.ID, re.Coded, re.NonCoded)
		if err != nil {
			return err
		}
	}
	return nil
}

// Void soft-deletes the record. Reaction rows stay attached for history.
func (r *allergyRepoPG) Void(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE allergy SET voided = true, void_reason = $2, updated_at = NOW()
		WHERE id = $1 AND voided = false`, id, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

var allergySearchParams = map[string]fhir.SearchParamConfig{
	"patient":  {Type: fhir.SearchParamReference, Column: "patient_id"},
	"category": {Type: fhir.SearchParamToken, Column: "allergen_type"},
	"_id":      {Type: fhir.SearchParamToken, Column: "fhir_id"},
}

func (r *allergyRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Allergy, int, error) {
	qb := fhir.NewSearchQuery("allergy", allergyCols)
	qb.ApplyParams(params, allergySearchParams)
	qb.Add("voided = false")
	qb.OrderBy("created_at DESC")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Allergy
	for rows.Next() {
		a, err := r.scanAllergy(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for _, a := range items {
		if err := r.loadReactions(ctx, a); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}
