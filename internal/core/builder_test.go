package core

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/TechXTT/fluentdao/pkg/dao"
)

type order struct {
	ID     int64  `db:"id"`
	Status string `db:"status"`
}

func newMockDAO(t *testing.T) (*dao.DAO, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return dao.New(dao.Static(sqlx.NewDb(db, "sqlmock"))), mock
}

func TestBuild_WithAllClauses(t *testing.T) {
	qb := NewQueryBuilder[any](nil).
		From("users").
		Select("id", "name").
		Where("active = ?", true).
		Join("JOIN orders ON orders.user_id = users.id").
		OrderBy("created_at DESC").
		Limit(10).
		Offset(5)

	res, err := qb.ToSQL()
	require.NoError(t, err)
	require.Equal(t,
		"SELECT id, name FROM users JOIN orders ON orders.user_id = users.id WHERE active = ? ORDER BY created_at DESC",
		res.Text,
	)
	require.Equal(t, []interface{}{true}, res.Params)
}

func TestBuild_Defaults(t *testing.T) {
	qb := NewQueryBuilder[any](nil).
		From("items")

	sql, args := qb.Build()
	require.Equal(t, "SELECT * FROM items", sql)
	require.Empty(t, args)
}

func TestToSQL_NoTable(t *testing.T) {
	_, err := NewQueryBuilder[any](nil).Select("id").ToSQL()
	require.Error(t, err)
}

func TestCount(t *testing.T) {
	d, mock := newMockDAO(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM (SELECT * FROM t WHERE x > ?) _v`)).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	qb := NewQueryBuilder[any](d).
		From("t").
		Where("x > ?", 5).
		OrderBy("x")

	count, err := qb.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAll(t *testing.T) {
	d, mock := newMockDAO(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM (SELECT id, status FROM orders WHERE status = ?) _v`)).
		WithArgs("open").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(12)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, status FROM orders WHERE status = ? ORDER BY id LIMIT 2 OFFSET 10`)).
		WithArgs("open").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).
			AddRow(int64(11), "open").
			AddRow(int64(12), "open"))

	w, err := NewQueryBuilder[order](d).
		From("orders").
		Select("id", "status").
		Where("status = ?", "open").
		OrderBy("id").
		Offset(10).
		Limit(2).
		All(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(12), w.Total())
	require.Equal(t, []order{{11, "open"}, {12, "open"}}, w.Items())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOne(t *testing.T) {
	d, mock := newMockDAO(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM orders WHERE id = ? LIMIT 1`)).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}))

	_, found, err := NewQueryBuilder[order](d).
		From("orders").
		Where("id = ?", 99).
		One(context.Background())
	require.NoError(t, err)
	require.False(t, found)
}

func TestProject(t *testing.T) {
	d, mock := newMockDAO(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, status, note FROM orders`)).
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("id").OfType("INTEGER", int64(0)),
			sqlmock.NewColumn("status").OfType("TEXT", ""),
			sqlmock.NewColumn("note").OfType("TEXT", ""),
		).AddRow(int64(1), "open", "rush"))

	type statusOnly struct{ Status string }
	got, err := Project[statusOnly](context.Background(),
		NewQueryBuilder[order](d).From("orders").Select("id", "status", "note"))
	require.NoError(t, err)
	require.Equal(t, []statusOnly{{"open"}}, got)
}
