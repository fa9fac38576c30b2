package dao

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TechXTT/fluentdao/internal/logger"
)

func newMockDAO(t *testing.T, opts ...Option) (*DAO, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(Static(sqlx.NewDb(db, "sqlmock")), opts...), mock
}

// textRows builds rows with TEXT column definitions so column type lookups
// work through the mock driver.
func textRows(names ...string) *sqlmock.Rows {
	cols := make([]*sqlmock.Column, len(names))
	for i, n := range names {
		cols[i] = sqlmock.NewColumn(n).OfType("TEXT", "")
	}
	return sqlmock.NewRowsWithColumnDefinition(cols...)
}

func q(s string) string {
	return "^" + regexp.QuoteMeta(s) + "$"
}

func TestExecuteQuery(t *testing.T) {
	d, mock := newMockDAO(t)
	mock.ExpectQuery(q("SELECT id, name FROM users WHERE active = ?")).
		WithArgs(true).
		WillReturnRows(textRows("id", "name").AddRow("1", "ada").AddRow("2", "bob"))

	rows, err := d.ExecuteQuery(context.Background(), "SELECT id, name FROM users WHERE active = ?", []any{true})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ada", rows[0]["name"])
	assert.Equal(t, "bob", rows[1]["name"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteColumnsKeepsDuplicateNames(t *testing.T) {
	d, mock := newMockDAO(t)
	const query = "SELECT u.id, o.id FROM users u JOIN orders o ON o.user_id = u.id"
	mock.ExpectQuery(q(query)).
		WillReturnRows(textRows("id", "id").AddRow("1", "10").AddRow("1", "11"))

	cols, rows, err := d.ExecuteColumns(context.Background(), query, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "id"}, cols)
	assert.Equal(t, [][]any{{"1", "10"}, {"1", "11"}}, rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNativeSQLStopsWhenHandlerReturnsFalse(t *testing.T) {
	d, mock := newMockDAO(t)
	mock.ExpectQuery(q("SELECT name FROM users")).
		WillReturnRows(textRows("name").AddRow("a").AddRow("b").AddRow("c"))

	var seen []any
	err := d.NativeSQL(context.Background(), "SELECT name FROM users", nil, func(r Row) bool {
		seen = append(seen, r["name"])
		return len(seen) < 2
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, seen)
}

func TestExecuteScalar(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		d, mock := newMockDAO(t)
		mock.ExpectQuery(q("SELECT name FROM users ORDER BY name LIMIT 1")).
			WillReturnRows(textRows("name").AddRow("ada"))

		row, found, err := d.ExecuteScalar(context.Background(), "SELECT name FROM users ORDER BY name", nil)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "ada", row["name"])
	})

	t.Run("empty", func(t *testing.T) {
		d, mock := newMockDAO(t)
		mock.ExpectQuery(q("SELECT name FROM users LIMIT 1")).
			WillReturnRows(textRows("name"))

		row, found, err := d.ExecuteScalar(context.Background(), "SELECT name FROM users;", nil)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, row)
	})
}

func TestExecuteUpdate(t *testing.T) {
	t.Run("no keys", func(t *testing.T) {
		d, mock := newMockDAO(t)
		mock.ExpectExec(q("DELETE FROM users WHERE id = ?")).
			WithArgs(3).
			WillReturnResult(sqlmock.NewResult(0, 1))

		rows, err := d.ExecuteUpdate(context.Background(), "DELETE FROM users WHERE id = ?", []any{3}, false)
		require.NoError(t, err)
		assert.Nil(t, rows)
	})

	t.Run("last insert id", func(t *testing.T) {
		d, mock := newMockDAO(t, WithDialect(MySQL))
		mock.ExpectExec(q("INSERT INTO users (name) VALUES (?)")).
			WithArgs("ada").
			WillReturnResult(sqlmock.NewResult(7, 1))

		rows, err := d.ExecuteUpdate(context.Background(), "INSERT INTO users (name) VALUES (?)", []any{"ada"}, true)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, int64(7), rows[0][GeneratedKeyColumn])
	})

	t.Run("returning", func(t *testing.T) {
		d, mock := newMockDAO(t, WithDialect(Postgres))
		mock.ExpectQuery(q("INSERT INTO users (name) VALUES ($1) RETURNING id")).
			WithArgs("ada").
			WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
				sqlmock.NewColumn("id").OfType("INT8", int64(0)),
			).AddRow(int64(9)))

		rows, err := d.ExecuteUpdate(context.Background(), "INSERT INTO users (name) VALUES (?) RETURNING id", []any{"ada"}, true)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, int64(9), rows[0]["id"])
	})
}

func TestNativeExecute(t *testing.T) {
	d, mock := newMockDAO(t)
	mock.ExpectExec(q("UPDATE users SET active = ?")).
		WithArgs(false).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := d.NativeExecute(context.Background(), "UPDATE users SET active = ?", []any{false})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestPage(t *testing.T) {
	const base = "SELECT id, name FROM users ORDER BY id"

	t.Run("with offset counts first", func(t *testing.T) {
		d, mock := newMockDAO(t)
		mock.ExpectQuery(q("SELECT COUNT(*) FROM (SELECT id, name FROM users) _v")).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(25)))
		rows := textRows("id", "name")
		for i := 0; i < 10; i++ {
			rows.AddRow("id", "name")
		}
		mock.ExpectQuery(q(base + " LIMIT 10 OFFSET 0")).WillReturnRows(rows)

		w, err := d.Page(context.Background(), base, nil, Bound(0), Bound(10))
		require.NoError(t, err)
		assert.Equal(t, 10, w.Len())
		assert.Equal(t, int64(25), w.Total())
		off, ok := w.Offset()
		assert.True(t, ok)
		assert.Equal(t, 0, off)
		lim, ok := w.Limit()
		assert.True(t, ok)
		assert.Equal(t, 10, lim)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("without offset skips count", func(t *testing.T) {
		d, mock := newMockDAO(t)
		mock.ExpectQuery(q(base + " LIMIT 5")).
			WillReturnRows(textRows("id", "name").AddRow("1", "ada"))

		w, err := d.Page(context.Background(), base, nil, nil, Bound(5))
		require.NoError(t, err)
		assert.Equal(t, TotalUnknown, w.Total())
		_, ok := w.Offset()
		assert.False(t, ok)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("count failure", func(t *testing.T) {
		d, mock := newMockDAO(t)
		boom := errors.New("boom")
		mock.ExpectQuery(`SELECT COUNT`).WillReturnError(boom)

		_, err := d.Page(context.Background(), base, nil, Bound(0), Bound(10))
		require.Error(t, err)
		assert.True(t, errors.Is(err, boom))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestExecutionError(t *testing.T) {
	d, mock := newMockDAO(t)
	boom := errors.New("relation does not exist")
	mock.ExpectQuery(q("SELECT * FROM missing WHERE id = ?")).WithArgs(1).WillReturnError(boom)

	_, err := d.ExecuteQuery(context.Background(), "SELECT * FROM missing WHERE id = ?", []any{1})
	require.Error(t, err)

	var ee *ExecutionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "SELECT * FROM missing WHERE id = ?", ee.SQL)
	assert.Equal(t, []any{1}, ee.Params)
	assert.True(t, errors.Is(err, boom))
}

func TestNoSource(t *testing.T) {
	d := New(nil)
	_, err := d.ExecuteQuery(context.Background(), "SELECT 1", nil)
	assert.True(t, errors.Is(err, ErrNoSource))
}

func TestSourceError(t *testing.T) {
	noSession := errors.New("no session")
	d := New(SourceFunc(func(context.Context) (Executor, error) { return nil, noSession }))
	_, err := d.NativeExecute(context.Background(), "DELETE FROM t", nil)
	assert.True(t, errors.Is(err, noSession))
}

func TestBinaryColumnIsStream(t *testing.T) {
	d, mock := newMockDAO(t)
	mock.ExpectQuery(q("SELECT name, data FROM files")).
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("name").OfType("VARCHAR", ""),
			sqlmock.NewColumn("data").OfType("BLOB", []byte{}),
		).AddRow([]byte("a.txt"), []byte("payload")))

	rows, err := d.ExecuteQuery(context.Background(), "SELECT name, data FROM files", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a.txt", rows[0]["name"])

	s, ok := rows[0]["data"].(*Stream)
	require.True(t, ok, "got %T", rows[0]["data"])
	b, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(b))
}

func TestParameterBinding(t *testing.T) {
	d, mock := newMockDAO(t, WithDialect(Postgres))
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(q("INSERT INTO files (name, data, created) VALUES ($1, $2, $3)")).
		WithArgs("a.txt", []byte("payload"), at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := d.NativeExecute(context.Background(),
		"INSERT INTO files (name, data, created) VALUES (?, ?, ?)",
		[]any{"a.txt", bytes.NewBufferString("payload"), &at})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

type person struct {
	Name string
	Age  int
}

func TestQueryAs(t *testing.T) {
	d, mock := newMockDAO(t)
	mock.ExpectQuery(q("SELECT NAME, AGE, EXTRA FROM people")).
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("NAME").OfType("TEXT", ""),
			sqlmock.NewColumn("AGE").OfType("INTEGER", int64(0)),
			sqlmock.NewColumn("EXTRA").OfType("TEXT", ""),
		).AddRow("ada", int64(36), "x"))

	people, err := QueryAs[person](context.Background(), d, "SELECT NAME, AGE, EXTRA FROM people", nil)
	require.NoError(t, err)
	assert.Equal(t, []person{{Name: "ada", Age: 36}}, people)
}

type rawQuery struct {
	text   string
	params []any
	err    error
}

func (r rawQuery) ToSQL() (SQLResult, error) {
	return NewSQLResult(r.text, r.params...), r.err
}

type user struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

func TestList(t *testing.T) {
	d, mock := newMockDAO(t)
	mock.ExpectQuery(q("SELECT COUNT(*) FROM (SELECT id, name FROM users WHERE id > ?) _v")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery(q("SELECT id, name FROM users WHERE id > ? LIMIT 2 OFFSET 1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(3), "cy").AddRow(int64(4), "di"))

	w, err := List[user](context.Background(), d, rawQuery{text: "SELECT id, name FROM users WHERE id > ?", params: []any{1}}, Bound(1), Bound(2))
	require.NoError(t, err)
	assert.Equal(t, int64(3), w.Total())
	assert.Equal(t, []user{{3, "cy"}, {4, "di"}}, w.Items())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListLoweringError(t *testing.T) {
	d, _ := newMockDAO(t)
	_, err := List[user](context.Background(), d, rawQuery{err: errors.New("no table")}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lowering query")
}

func TestSingle(t *testing.T) {
	d, mock := newMockDAO(t)
	mock.ExpectQuery(q("SELECT id, name FROM users WHERE id = ? LIMIT 1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "ada"))
	mock.ExpectQuery(q("SELECT id, name FROM users WHERE id = ? LIMIT 1")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	u, found, err := Single[user](context.Background(), d, rawQuery{text: "SELECT id, name FROM users WHERE id = ?", params: []any{1}})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, user{1, "ada"}, u)

	_, found, err = Single[user](context.Background(), d, rawQuery{text: "SELECT id, name FROM users WHERE id = ?", params: []any{2}})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	d, mock := newMockDAO(t, WithMetrics(m))

	mock.ExpectExec(`DELETE`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE`).WillReturnError(errors.New("locked"))

	_, err := d.NativeExecute(context.Background(), "DELETE FROM t", nil)
	require.NoError(t, err)
	_, err = d.NativeExecute(context.Background(), "DELETE FROM t", nil)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Statements.WithLabelValues("update", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Statements.WithLabelValues("update", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Duration))
}

func TestDebugLogsStatements(t *testing.T) {
	buf := logger.NewBufferLogger()
	d, mock := newMockDAO(t, WithLogger(buf))
	mock.ExpectExec(`DELETE`).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := d.NativeExecute(context.Background(), "DELETE FROM t WHERE id = ?", []any{5})
	require.NoError(t, err)
	assert.Contains(t, buf.Entries(), "DEBUG: DELETE FROM t WHERE id = ? [5]")
}
