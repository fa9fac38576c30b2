// File: internal/core/builder.go
package core

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/TechXTT/fluentdao/pkg/dao"
)

// QueryBuilder is a generics-based fluent query builder. It lowers itself to
// SQL through ToSQL and runs on a dao.DAO; limit and offset are applied by
// the engine's dialect, not written into the text.
type QueryBuilder[T any] struct {
	dao         *dao.DAO
	table       string
	selectCols  []string
	whereOps    []string
	args        []interface{}
	joinClauses []string
	orderBy     string
	limit       *int
	offset      *int
}

func NewQueryBuilder[T any](d *dao.DAO) *QueryBuilder[T] {
	return &QueryBuilder[T]{dao: d}
}

func (qb *QueryBuilder[T]) From(table string) *QueryBuilder[T] {
	qb.table = table
	return qb
}

func (qb *QueryBuilder[T]) Select(cols ...string) *QueryBuilder[T] {
	qb.selectCols = cols
	return qb
}

// Where adds a condition; conditions are joined with AND.
func (qb *QueryBuilder[T]) Where(cond string, vals ...interface{}) *QueryBuilder[T] {
	qb.whereOps = append(qb.whereOps, cond)
	qb.args = append(qb.args, vals...)
	return qb
}

// Join adds a JOIN clause (e.g. "JOIN other_table ON ...")
func (qb *QueryBuilder[T]) Join(clause string) *QueryBuilder[T] {
	qb.joinClauses = append(qb.joinClauses, clause)
	return qb
}

func (qb *QueryBuilder[T]) OrderBy(order string) *QueryBuilder[T] {
	qb.orderBy = order
	return qb
}

func (qb *QueryBuilder[T]) Limit(n int) *QueryBuilder[T] {
	qb.limit = dao.Bound(n)
	return qb
}

// Offset sets the window start. Setting it makes All compute the total.
func (qb *QueryBuilder[T]) Offset(n int) *QueryBuilder[T] {
	qb.offset = dao.Bound(n)
	return qb
}

// Build assembles the SQL text and returns it with args
func (qb *QueryBuilder[T]) Build() (string, []interface{}) {
	parts := []string{"SELECT"}
	if len(qb.selectCols) > 0 {
		parts = append(parts, strings.Join(qb.selectCols, ", "))
	} else {
		parts = append(parts, "*")
	}
	parts = append(parts, "FROM", qb.table)
	if len(qb.joinClauses) > 0 {
		parts = append(parts, strings.Join(qb.joinClauses, " "))
	}
	if len(qb.whereOps) > 0 {
		parts = append(parts, "WHERE", strings.Join(qb.whereOps, " AND "))
	}
	if qb.orderBy != "" {
		parts = append(parts, "ORDER BY", qb.orderBy)
	}
	return strings.Join(parts, " "), qb.args
}

// ToSQL implements dao.Descriptor.
func (qb *QueryBuilder[T]) ToSQL() (dao.SQLResult, error) {
	if strings.TrimSpace(qb.table) == "" {
		return dao.SQLResult{}, errors.New("core: query has no table")
	}
	query, args := qb.Build()
	return dao.NewSQLResult(query, args...), nil
}

// All runs the query and maps every row onto T.
func (qb *QueryBuilder[T]) All(ctx context.Context) (*dao.Window[T], error) {
	return dao.List[T](ctx, qb.dao, qb, qb.offset, qb.limit)
}

// One fetches the first matching T. The boolean is false when nothing matched.
func (qb *QueryBuilder[T]) One(ctx context.Context) (T, bool, error) {
	return dao.Single[T](ctx, qb.dao, qb)
}

// Rows runs the query without mapping and returns the raw rows.
func (qb *QueryBuilder[T]) Rows(ctx context.Context) (*dao.Window[dao.Row], error) {
	res, err := qb.ToSQL()
	if err != nil {
		return nil, err
	}
	return qb.dao.Page(ctx, res.Text, res.Params, qb.offset, qb.limit)
}

// Count returns the count of matching records
func (qb *QueryBuilder[T]) Count(ctx context.Context) (int64, error) {
	res, err := qb.ToSQL()
	if err != nil {
		return 0, err
	}
	return qb.dao.Count(ctx, res.Text, res.Params)
}

// Project runs qb and maps the rows onto R, ignoring columns R has no field
// for.
func Project[R, T any](ctx context.Context, qb *QueryBuilder[T]) ([]R, error) {
	return dao.ListAs[R](ctx, qb.dao, qb)
}
