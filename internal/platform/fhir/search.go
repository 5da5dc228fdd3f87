package fhir

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SearchPrefix is a FHIR comparison prefix on ordered values (dates here).
type SearchPrefix string

const (
	PrefixEq SearchPrefix = "eq"
	PrefixNe SearchPrefix = "ne"
	PrefixGt SearchPrefix = "gt"
	PrefixLt SearchPrefix = "lt"
	PrefixGe SearchPrefix = "ge"
	PrefixLe SearchPrefix = "le"
)

// SearchModifier alters string matching, e.g. "family:exact".
type SearchModifier string

const (
	ModifierExact    SearchModifier = "exact"
	ModifierContains SearchModifier = "contains"
)

// ParsedSearch is a search value split into its prefix and payload.
type ParsedSearch struct {
	Prefix SearchPrefix
	Value  string
}

// ParseSearchValue splits a comparison prefix off a search value:
// "ge1980-01-01" parses to (ge, "1980-01-01"), a bare value to eq.
func ParseSearchValue(raw string) ParsedSearch {
	if len(raw) >= 2 {
		prefix := SearchPrefix(strings.ToLower(raw[:2]))
		switch prefix {
		case PrefixEq, PrefixNe, PrefixGt, PrefixLt, PrefixGe, PrefixLe:
			return ParsedSearch{Prefix: prefix, Value: raw[2:]}
		}
	}
	return ParsedSearch{Prefix: PrefixEq, Value: raw}
}

// ParseParamModifier splits "family:exact" into ("family", exact).
func ParseParamModifier(paramName string) (string, SearchModifier) {
	parts := strings.SplitN(paramName, ":", 2)
	if len(parts) == 2 {
		return parts[0], SearchModifier(parts[1])
	}
	return parts[0], ""
}

// DateSearchClause builds the SQL fragment for a date parameter such as
// birthdate. A day-precision eq value matches the whole day. Returns the
// clause, its bind arguments, and the next free positional index.
func DateSearchClause(column string, value string, argIdx int) (string, []interface{}, int) {
	parsed := ParseSearchValue(value)

	t, err := parseFlexDate(parsed.Value)
	if err != nil {
		// Unparseable date: compare the raw text so the query still runs.
		return fmt.Sprintf("%s::text = $%d", column, argIdx), []interface{}{parsed.Value}, argIdx + 1
	}

	switch parsed.Prefix {
	case PrefixGt:
		return fmt.Sprintf("%s > $%d", column, argIdx), []interface{}{t}, argIdx + 1
	case PrefixLt:
		return fmt.Sprintf("%s < $%d", column, argIdx), []interface{}{t}, argIdx + 1
	case PrefixGe:
		return fmt.Sprintf("%s >= $%d", column, argIdx), []interface{}{t}, argIdx + 1
	case PrefixLe:
		return fmt.Sprintf("%s <= $%d", column, argIdx), []interface{}{t}, argIdx + 1
	case PrefixNe:
		return fmt.Sprintf("%s != $%d", column, argIdx), []interface{}{t}, argIdx + 1
	default:
		if len(parsed.Value) == 10 { // YYYY-MM-DD
			endOfDay := t.Add(24*time.Hour - time.Nanosecond)
			clause := fmt.Sprintf("(%s >= $%d AND %s <= $%d)", column, argIdx, column, argIdx+1)
			return clause, []interface{}{t, endOfDay}, argIdx + 2
		}
		return fmt.Sprintf("%s = $%d", column, argIdx), []interface{}{t}, argIdx + 1
	}
}

// TokenSearchClause matches token values: "system|code", "system|", "|code",
// or a bare code. Bare codes match the code column only.
func TokenSearchClause(systemCol, codeCol string, value string, argIdx int) (string, []interface{}, int) {
	if strings.Contains(value, "|") {
		parts := strings.SplitN(value, "|", 2)
		system, code := parts[0], parts[1]

		switch {
		case system != "" && code != "":
			clause := fmt.Sprintf("(%s = $%d AND %s = $%d)", systemCol, argIdx, codeCol, argIdx+1)
			return clause, []interface{}{system, code}, argIdx + 2
		case system != "":
			return fmt.Sprintf("%s = $%d", systemCol, argIdx), []interface{}{system}, argIdx + 1
		case code != "":
			return fmt.Sprintf("%s = $%d", codeCol, argIdx), []interface{}{code}, argIdx + 1
		}
	}
	return fmt.Sprintf("%s = $%d", codeCol, argIdx), []interface{}{value}, argIdx + 1
}

// StringSearchClause matches name-style parameters. The default is a
// case-insensitive prefix match per the FHIR string search rules.
func StringSearchClause(column string, value string, modifier SearchModifier, argIdx int) (string, []interface{}, int) {
	switch modifier {
	case ModifierExact:
		return fmt.Sprintf("%s = $%d", column, argIdx), []interface{}{value}, argIdx + 1
	case ModifierContains:
		return fmt.Sprintf("%s ILIKE $%d", column, argIdx), []interface{}{"%" + value + "%"}, argIdx + 1
	default:
		return fmt.Sprintf("%s ILIKE $%d", column, argIdx), []interface{}{value + "%"}, argIdx + 1
	}
}

// ReferenceSearchClause matches reference parameters such as
// patient=Patient/<id>. A UUID value compares against the column directly;
// anything else is treated as a FHIR id and resolved through a subquery on
// the referenced table, taken from the reference's resource type or inferred
// from the column name ("patient_id" resolves against patient). Values that
// cannot be mapped to a table compare against the column directly.
func ReferenceSearchClause(column string, value string, argIdx int) (string, []interface{}, int) {
	var resourceType string
	if idx := strings.LastIndex(value, "/"); idx >= 0 {
		resourceType = value[:idx]
		value = value[idx+1:]
	}

	if _, err := uuid.Parse(value); err == nil {
		return fmt.Sprintf("%s = $%d", column, argIdx), []interface{}{value}, argIdx + 1
	}

	if table := referenceTargetTable(column, resourceType); table != "" {
		clause := fmt.Sprintf("%s = (SELECT id FROM %s WHERE fhir_id = $%d LIMIT 1)", column, table, argIdx)
		return clause, []interface{}{value}, argIdx + 1
	}
	return fmt.Sprintf("%s = $%d", column, argIdx), []interface{}{value}, argIdx + 1
}

func referenceTargetTable(column, resourceType string) string {
	if resourceType != "" && !strings.Contains(resourceType, "://") && !strings.Contains(resourceType, ".") {
		return strings.ToLower(resourceType)
	}
	if strings.HasSuffix(column, "_id") {
		return strings.TrimSuffix(column, "_id")
	}
	return ""
}

// parseFlexDate accepts the date precisions FHIR allows, from full
// timestamps down to a bare year.
func parseFlexDate(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
		"2006-01",
		"2006",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}
