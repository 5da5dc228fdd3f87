package fhir

import (
	"fmt"
)

// SearchParamType is the FHIR type of a search parameter, which decides
// how its value turns into SQL.
type SearchParamType int

const (
	SearchParamToken     SearchParamType = iota // exact match, or system|code
	SearchParamDate                             // comparison prefixes, day-precision eq
	SearchParamString                           // case-insensitive prefix match
	SearchParamReference                        // Type/id or bare id
)

// SearchParamConfig maps one search parameter onto its table columns.
// Each repository declares a map of these for the parameters it supports.
type SearchParamConfig struct {
	Type      SearchParamType
	Column    string // value column (the code column for tokens)
	SysColumn string // optional system column for system|code tokens
}

// SearchQuery accumulates WHERE fragments with correctly numbered
// positional arguments, then renders matching COUNT and data queries.
type SearchQuery struct {
	table   string
	cols    string
	where   string
	args    []interface{}
	idx     int
	orderBy string
}

func NewSearchQuery(table, cols string) *SearchQuery {
	return &SearchQuery{table: table, cols: cols, idx: 1}
}

// Add appends a raw WHERE fragment. The fragment must use $n placeholders
// starting at the builder's current index.
func (q *SearchQuery) Add(clause string, args ...interface{}) {
	q.where += " AND " + clause
	q.args = append(q.args, args...)
	q.idx += len(args)
}

func (q *SearchQuery) addClause(clause string, args []interface{}, nextIdx int) {
	q.where += " AND " + clause
	q.args = append(q.args, args...)
	q.idx = nextIdx
}

// ApplyParam translates one parameter value through its config.
func (q *SearchQuery) ApplyParam(config SearchParamConfig, value string) {
	switch config.Type {
	case SearchParamDate:
		q.addClause(DateSearchClause(config.Column, value, q.idx))
	case SearchParamToken:
		if config.SysColumn != "" {
			q.addClause(TokenSearchClause(config.SysColumn, config.Column, value, q.idx))
		} else {
			q.Add(fmt.Sprintf("%s = $%d", config.Column, q.idx), value)
		}
	case SearchParamString:
		q.addClause(StringSearchClause(config.Column, value, "", q.idx))
	case SearchParamReference:
		q.addClause(ReferenceSearchClause(config.Column, value, q.idx))
	}
}

// ApplyParams applies every parameter that appears in the config map and
// silently skips the rest.
func (q *SearchQuery) ApplyParams(params map[string]string, configs map[string]SearchParamConfig) {
	for name, value := range params {
		if config, ok := configs[name]; ok {
			q.ApplyParam(config, value)
		}
	}
}

// OrderBy sets the ORDER BY expression, without the keyword.
func (q *SearchQuery) OrderBy(orderBy string) {
	q.orderBy = orderBy
}

func (q *SearchQuery) CountSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE 1=1%s", q.table, q.where)
}

func (q *SearchQuery) CountArgs() []interface{} {
	return q.args
}

func (q *SearchQuery) DataSQL(limit, offset int) string {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1%s", q.cols, q.table, q.where)
	if q.orderBy != "" {
		sql += " ORDER BY " + q.orderBy
	}
	sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", q.idx, q.idx+1)
	return sql
}

func (q *SearchQuery) DataArgs(limit, offset int) []interface{} {
	result := make([]interface{}, len(q.args)+2)
	copy(result, q.args)
	result[len(q.args)] = limit
	result[len(q.args)+1] = offset
	return result
}
