package patient

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

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const patientCols = `id, fhir_id, active, mrn, first_name, middle_name, last_name,
	birth_date, gender, deceased, allergy_status, created_at, updated_at`

func (r *patientRepoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FHIRID, &p.Active, &p.MRN, &p.FirstName, &p.MiddleName, &p.LastName,
		&p.BirthDate, &p.Gender, &p.Deceased, &p.AllergyStatus, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	if p.FHIRID == "" {
		p.FHIRID = p.ID.String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, fhir_id, active, mrn, first_name, middle_name, last_name,
			birth_date, gender, deceased, allergy_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.FHIRID, p.Active, p.MRN, p.FirstName, p.MiddleName, p.LastName,
		p.BirthDate, p.Gender, p.Deceased, p.AllergyStatus)
	return err
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *patientRepoPG) GetByFHIRID(ctx context.Context, fhirID string) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE fhir_id = $1`, fhirID))
}

func (r *patientRepoPG) GetByMRN(ctx context.Context, mrn string) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE mrn = $1`, mrn))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET active=$2, first_name=$3, middle_name=$4, last_name=$5,
			birth_date=$6, gender=$7, deceased=$8, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Active, p.FirstName, p.MiddleName, p.LastName,
		p.BirthDate, p.Gender, p.Deceased)
	return err
}

var patientSearchParams = map[string]fhir.SearchParamConfig{
	"identifier": {Type: fhir.SearchParamToken, Column: "mrn"},
	"family":     {Type: fhir.SearchParamString, Column: "last_name"},
	"given":      {Type: fhir.SearchParamString, Column: "first_name"},
	"gender":     {Type: fhir.SearchParamToken, Column: "gender"},
	"birthdate":  {Type: fhir.SearchParamDate, Column: "birth_date"},
	"_id":        {Type: fhir.SearchParamToken, Column: "fhir_id"},
}

func (r *patientRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	qb := fhir.NewSearchQuery("patient", patientCols)
	qb.ApplyParams(params, patientSearchParams)
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
	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *patientRepoPG) AllergyStatus(ctx context.Context, patientID uuid.UUID) (string, error) {
	var status string
	err := r.conn(ctx).QueryRow(ctx, `SELECT allergy_status FROM patient WHERE id = $1`, patientID).Scan(&status)
	return status, err
}

func (r *patientRepoPG) SetAllergyStatus(ctx context.Context, patientID uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET allergy_status = $2, updated_at = NOW() WHERE id = $1`, patientID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
