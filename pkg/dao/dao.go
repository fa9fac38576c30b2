package dao

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/TechXTT/fluentdao/internal/logger"
)

// Executor is what the engine runs statements on. *sqlx.DB, *sqlx.Conn and
// *sqlx.Tx all satisfy it.
type Executor interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

// Source resolves the executor a call should use.
type Source interface {
	Executor(ctx context.Context) (Executor, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Executor, error)

func (f SourceFunc) Executor(ctx context.Context) (Executor, error) {
	return f(ctx)
}

// Static returns a Source that always hands out e.
func Static(e Executor) Source {
	return SourceFunc(func(context.Context) (Executor, error) { return e, nil })
}

type Option func(*DAO)

func WithDialect(d Dialect) Option {
	return func(dao *DAO) { dao.dialect = d }
}

func WithLogger(l logger.Logger) Option {
	return func(dao *DAO) {
		if l != nil {
			dao.log = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(dao *DAO) { dao.metrics = m }
}

func WithHooks(h Hooks) Option {
	return func(dao *DAO) {
		if h != nil {
			dao.hooks = h
		}
	}
}

// DAO is the SQL execution engine. It lowers descriptors, binds parameters,
// runs statements on the executor its Source resolves and maps the rows.
type DAO struct {
	src     Source
	dialect Dialect
	log     logger.Logger
	metrics *Metrics
	hooks   Hooks
}

func New(src Source, opts ...Option) *DAO {
	d := &DAO{
		src:     src,
		dialect: Generic,
		log:     logger.NopLogger,
		hooks:   NopHooks{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DAO) Dialect() Dialect {
	return d.dialect
}

func (d *DAO) prepare(ctx context.Context, query string, params []any) (Executor, string, []any, error) {
	if d.src == nil {
		return nil, "", nil, ErrNoSource
	}
	exec, err := d.src.Executor(ctx)
	if err != nil {
		return nil, "", nil, errors.Wrap(err, "resolving executor")
	}
	args, err := bindParams(params)
	if err != nil {
		return nil, "", nil, err
	}
	q := d.dialect.Rebind(query)
	d.log.Debugf("%s %v", q, params)
	return exec, q, args, nil
}

func (d *DAO) release(rows *sql.Rows, query string) {
	if err := rows.Close(); err != nil {
		d.log.Warnf("closing rows of %q: %v", query, err)
	}
}

// queryRows runs a read statement and hands the open result set to fn,
// closing it afterwards. fn receives the rebound text.
func (d *DAO) queryRows(ctx context.Context, op, query string, params []any, fn func(q string, rows *sql.Rows) error) (err error) {
	start := time.Now()
	defer func() { d.metrics.observe(op, start, err) }()

	exec, q, args, err := d.prepare(ctx, query, params)
	if err != nil {
		return execError(query, params, err)
	}
	rows, err := exec.QueryContext(ctx, q, args...)
	if err != nil {
		return execError(q, params, err)
	}
	defer d.release(rows, q)
	return fn(q, rows)
}

// query feeds each row of a read statement to fn. Errors returned by fn
// come back unwrapped; everything else is an ExecutionError.
func (d *DAO) query(ctx context.Context, op, query string, params []any, fn func(Row) (bool, error)) error {
	return d.queryRows(ctx, op, query, params, func(q string, rows *sql.Rows) error {
		var handlerErr error
		err := scanRows(rows, func(r Row) (bool, error) {
			more, err := fn(r)
			handlerErr = err
			return more, err
		})
		if handlerErr != nil {
			return handlerErr
		}
		return execError(q, params, err)
	})
}

func (d *DAO) exec(ctx context.Context, op, query string, params []any) (res sql.Result, err error) {
	start := time.Now()
	defer func() { d.metrics.observe(op, start, err) }()

	exec, q, args, err := d.prepare(ctx, query, params)
	if err != nil {
		return nil, execError(query, params, err)
	}
	res, err = exec.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, execError(q, params, err)
	}
	return res, nil
}

// ExecuteQuery runs a read query and returns every row.
func (d *DAO) ExecuteQuery(ctx context.Context, query string, params []any) ([]Row, error) {
	var out []Row
	err := d.query(ctx, "query", query, params, func(r Row) (bool, error) {
		out = append(out, r)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExecuteColumns runs a read query and returns the result's column names
// with each row's values in the same positions.
func (d *DAO) ExecuteColumns(ctx context.Context, query string, params []any) ([]string, [][]any, error) {
	var (
		cols []string
		out  [][]any
	)
	err := d.queryRows(ctx, "query", query, params, func(q string, rows *sql.Rows) error {
		var err error
		if cols, err = rows.Columns(); err != nil {
			return execError(q, params, err)
		}
		return execError(q, params, scanValues(rows, func(_ []string, vals []any) (bool, error) {
			out = append(out, vals)
			return true, nil
		}))
	})
	if err != nil {
		return nil, nil, err
	}
	return cols, out, nil
}

// NativeSQL calls handler for each row until it returns false.
func (d *DAO) NativeSQL(ctx context.Context, query string, params []any, handler RowHandler) error {
	return d.query(ctx, "query", query, params, func(r Row) (bool, error) {
		return handler(r), nil
	})
}

// QueryAs runs query and maps each row onto a T by case-insensitive field
// name.
func QueryAs[T any](ctx context.Context, d *DAO, query string, params []any) ([]T, error) {
	var out []T
	err := d.query(ctx, "query", query, params, func(r Row) (bool, error) {
		v, err := MapRow[T](r)
		if err != nil {
			return false, err
		}
		out = append(out, v)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExecuteScalar returns the first row of query. The boolean is false when
// nothing matched.
func (d *DAO) ExecuteScalar(ctx context.Context, query string, params []any) (Row, bool, error) {
	var (
		row   Row
		found bool
	)
	err := d.query(ctx, "scalar", d.dialect.Paginate(query, nil, Bound(1)), params, func(r Row) (bool, error) {
		row, found = r, true
		return false, nil
	})
	if err != nil {
		return nil, false, err
	}
	return row, found, nil
}

// GeneratedKeyColumn names the column of the row ExecuteUpdate returns for
// dialects that report keys through LastInsertId.
const GeneratedKeyColumn = "generated_key"

// ExecuteUpdate runs a mutating statement. With wantGeneratedKeys the keys
// come back as rows: from the statement's own result set on dialects with
// RETURNING/OUTPUT, otherwise as a single GeneratedKeyColumn row.
func (d *DAO) ExecuteUpdate(ctx context.Context, query string, params []any, wantGeneratedKeys bool) ([]Row, error) {
	if !wantGeneratedKeys {
		_, err := d.exec(ctx, "update", query, params)
		return nil, err
	}
	if d.dialect.ReturnsKeys() {
		var out []Row
		err := d.query(ctx, "update", query, params, func(r Row) (bool, error) {
			out = append(out, r)
			return true, nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	res, err := d.exec(ctx, "update", query, params)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, execError(query, params, err)
	}
	return []Row{{GeneratedKeyColumn: id}}, nil
}

// NativeExecute runs a statement and returns the number of affected rows.
func (d *DAO) NativeExecute(ctx context.Context, query string, params []any) (int64, error) {
	res, err := d.exec(ctx, "update", query, params)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, execError(query, params, err)
	}
	return n, nil
}

// Executes returns a statement callback, suitable for Insert, Update and
// Delete, that runs the statement with NativeExecute.
func (d *DAO) Executes(ctx context.Context) StatementFunc {
	return func(query string, params []any) error {
		_, err := d.NativeExecute(ctx, query, params)
		return err
	}
}

// Count returns the number of rows query would produce, ignoring its
// trailing ordering.
func (d *DAO) Count(ctx context.Context, query string, params []any) (n int64, err error) {
	start := time.Now()
	defer func() { d.metrics.observe("count", start, err) }()

	exec, q, args, err := d.prepare(ctx, CountQuery(query), params)
	if err != nil {
		return 0, execError(query, params, err)
	}
	if err := exec.QueryRowxContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, execError(q, params, err)
	}
	return n, nil
}

// Page applies offset and limit to query. The total count is computed, with
// a second query, only when offset is set.
func (d *DAO) Page(ctx context.Context, query string, params []any, offset, limit *int) (*Window[Row], error) {
	total := TotalUnknown
	if offset != nil {
		n, err := d.Count(ctx, query, params)
		if err != nil {
			return nil, err
		}
		total = n
	}
	rows, err := d.ExecuteQuery(ctx, d.dialect.Paginate(query, offset, limit), params)
	if err != nil {
		return nil, err
	}
	return NewWindow(rows, offset, limit, total), nil
}

// List lowers q and materializes its rows as T through sqlx, which requires
// every column to have a destination field.
func List[T any](ctx context.Context, d *DAO, q Descriptor, offset, limit *int) (w *Window[T], err error) {
	res, err := q.ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "lowering query")
	}
	total := TotalUnknown
	if offset != nil {
		if total, err = d.Count(ctx, res.Text, res.Params); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	defer func() { d.metrics.observe("select", start, err) }()

	query := d.dialect.Paginate(res.Text, offset, limit)
	exec, sq, args, err := d.prepare(ctx, query, res.Params)
	if err != nil {
		return nil, execError(query, res.Params, err)
	}
	var items []T
	if err := sqlx.SelectContext(ctx, exec, &items, sq, args...); err != nil {
		return nil, execError(sq, res.Params, err)
	}
	return NewWindow(items, offset, limit, total), nil
}

// Single returns the first T matched by q, or false when there is none.
func Single[T any](ctx context.Context, d *DAO, q Descriptor) (out T, found bool, err error) {
	res, err := q.ToSQL()
	if err != nil {
		return out, false, errors.Wrap(err, "lowering query")
	}

	start := time.Now()
	defer func() { d.metrics.observe("select", start, err) }()

	query := d.dialect.Paginate(res.Text, nil, Bound(1))
	exec, sq, args, err := d.prepare(ctx, query, res.Params)
	if err != nil {
		return out, false, execError(query, res.Params, err)
	}
	if err := sqlx.GetContext(ctx, exec, &out, sq, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return out, false, nil
		}
		return out, false, execError(sq, res.Params, err)
	}
	return out, true, nil
}

// ListAs lowers q and projects its rows onto R with the tolerant row mapper.
func ListAs[R any](ctx context.Context, d *DAO, q Descriptor) ([]R, error) {
	res, err := q.ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "lowering query")
	}
	return QueryAs[R](ctx, d, res.Text, res.Params)
}
