package dao

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// StatementFunc receives a built statement and decides how and when to run
// it. DAO.Executes returns one that runs it immediately.
type StatementFunc func(query string, params []any) error

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Insert builds `INSERT INTO table (cols) VALUES (?, ...)` from values and
// passes it to call.
func (d *DAO) Insert(table string, values map[string]any, call StatementFunc) error {
	if len(values) == 0 {
		return errors.Errorf("insert into %s: no values", table)
	}
	cols := sortedKeys(values)
	params := make([]any, 0, len(cols))
	marks := make([]string, 0, len(cols))
	for _, c := range cols {
		params = append(params, values[c])
		marks = append(marks, "?")
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" (" + strings.Join(cols, ", ") + ")")
	sb.WriteString(" VALUES (" + strings.Join(marks, ", ") + ")")
	return call(sb.String(), params)
}

// Update builds `UPDATE table SET c = ? ... WHERE w = ? AND ...`. The set
// parameters come first, then the where parameters.
func (d *DAO) Update(table string, values, where map[string]any, call StatementFunc) error {
	if len(values) == 0 {
		return errors.Errorf("update %s: no values", table)
	}
	if len(where) == 0 {
		return errors.Errorf("update %s: no where columns", table)
	}
	params := make([]any, 0, len(values)+len(where))

	sets := make([]string, 0, len(values))
	for _, c := range sortedKeys(values) {
		sets = append(sets, c+" = ?")
		params = append(params, values[c])
	}
	conds, whereParams := whereClause(where)
	params = append(params, whereParams...)

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(table)
	sb.WriteString(" SET " + strings.Join(sets, ", "))
	sb.WriteString(" WHERE " + conds)
	return call(sb.String(), params)
}

// Delete builds `DELETE FROM table WHERE w = ? AND ...`.
func (d *DAO) Delete(table string, where map[string]any, call StatementFunc) error {
	if len(where) == 0 {
		return errors.Errorf("delete from %s: no where columns", table)
	}
	conds, params := whereClause(where)
	return call("DELETE FROM "+table+" WHERE "+conds, params)
}

func whereClause(where map[string]any) (string, []any) {
	conds := make([]string, 0, len(where))
	params := make([]any, 0, len(where))
	for _, c := range sortedKeys(where) {
		conds = append(conds, c+" = ?")
		params = append(params, where[c])
	}
	return strings.Join(conds, " AND "), params
}
