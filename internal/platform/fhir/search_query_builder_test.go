package fhir

import (
	"strings"
	"testing"
)

func TestSearchQuery_CountAndData(t *testing.T) {
	q := NewSearchQuery("allergy", "id, fhir_id, allergen_type")
	q.Add("patient_id = $1", "7f3d9a60-1111-4f3c-9c35-000000000001")
	q.Add("voided = false")
	q.OrderBy("sort_weight ASC")

	countSQL := q.CountSQL()
	want := "SELECT COUNT(*) FROM allergy WHERE 1=1 AND patient_id = $1 AND voided = false"
	if countSQL != want {
		t.Errorf("count SQL = %q, want %q", countSQL, want)
	}
	if args := q.CountArgs(); len(args) != 1 || args[0] != "7f3d9a60-1111-4f3c-9c35-000000000001" {
		t.Errorf("unexpected count args: %v", args)
	}

	dataSQL := q.DataSQL(20, 40)
	if !strings.HasPrefix(dataSQL, "SELECT id, fhir_id, allergen_type FROM allergy WHERE 1=1") {
		t.Errorf("unexpected data SQL prefix: %s", dataSQL)
	}
	if !strings.Contains(dataSQL, "ORDER BY sort_weight ASC") {
		t.Errorf("expected ORDER BY in data SQL: %s", dataSQL)
	}
	if !strings.HasSuffix(dataSQL, "LIMIT $2 OFFSET $3") {
		t.Errorf("expected LIMIT/OFFSET at next indices: %s", dataSQL)
	}

	dataArgs := q.DataArgs(20, 40)
	if len(dataArgs) != 3 || dataArgs[1] != 20 || dataArgs[2] != 40 {
		t.Errorf("unexpected data args: %v", dataArgs)
	}
}

func TestSearchQuery_ApplyParams(t *testing.T) {
	configs := map[string]SearchParamConfig{
		"patient":  {Type: SearchParamReference, Column: "patient_id"},
		"category": {Type: SearchParamToken, Column: "allergen_type"},
		"_id":      {Type: SearchParamToken, Column: "fhir_id"},
	}

	q := NewSearchQuery("allergy", "id")
	q.ApplyParams(map[string]string{"category": "drug"}, configs)

	sql := q.CountSQL()
	if !strings.Contains(sql, "allergen_type = $1") {
		t.Errorf("expected category clause, got %s", sql)
	}
	if args := q.CountArgs(); len(args) != 1 || args[0] != "drug" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestSearchQuery_ApplyParamsSkipsUnknown(t *testing.T) {
	configs := map[string]SearchParamConfig{
		"category": {Type: SearchParamToken, Column: "allergen_type"},
	}

	q := NewSearchQuery("allergy", "id")
	q.ApplyParams(map[string]string{"_sort": "date", "category": "food"}, configs)

	if args := q.CountArgs(); len(args) != 1 || args[0] != "food" {
		t.Errorf("unknown parameters should not bind args, got %v", args)
	}
}

func TestSearchQuery_ReferenceParamResolvesFHIRID(t *testing.T) {
	configs := map[string]SearchParamConfig{
		"patient": {Type: SearchParamReference, Column: "patient_id"},
	}

	q := NewSearchQuery("allergy", "id")
	q.ApplyParams(map[string]string{"patient": "Patient/pat-42"}, configs)

	sql := q.CountSQL()
	if !strings.Contains(sql, "patient_id = (SELECT id FROM patient WHERE fhir_id = $1 LIMIT 1)") {
		t.Errorf("expected fhir_id subquery, got %s", sql)
	}
}

func TestSearchQuery_SystemCodeTokenUsesBothColumns(t *testing.T) {
	configs := map[string]SearchParamConfig{
		"code": {Type: SearchParamToken, Column: "concept_code", SysColumn: "concept_system"},
	}

	q := NewSearchQuery("concept", "id")
	q.ApplyParams(map[string]string{"code": "http://example.org/allergens|PENICILLIN"}, configs)

	sql := q.CountSQL()
	if !strings.Contains(sql, "(concept_system = $1 AND concept_code = $2)") {
		t.Errorf("expected system and code clause, got %s", sql)
	}
	if args := q.CountArgs(); len(args) != 2 {
		t.Errorf("expected 2 args, got %v", args)
	}
}

func TestSearchQuery_IndicesAdvanceAcrossMixedClauses(t *testing.T) {
	configs := map[string]SearchParamConfig{
		"identifier": {Type: SearchParamToken, Column: "mrn"},
		"family":     {Type: SearchParamString, Column: "last_name"},
		"birthdate":  {Type: SearchParamDate, Column: "birth_date"},
	}

	q := NewSearchQuery("patient", "id")
	q.ApplyParam(configs["identifier"], "MRN-001")
	q.ApplyParam(configs["family"], "Smith")
	q.ApplyParam(configs["birthdate"], "1980-01-01")

	// The day-precision date binds two arguments, so LIMIT lands at $5.
	if args := q.CountArgs(); len(args) != 4 {
		t.Fatalf("expected 4 bound args, got %d: %v", len(args), args)
	}
	dataSQL := q.DataSQL(10, 0)
	if !strings.HasSuffix(dataSQL, "LIMIT $5 OFFSET $6") {
		t.Errorf("expected LIMIT $5 OFFSET $6, got %s", dataSQL)
	}
}
