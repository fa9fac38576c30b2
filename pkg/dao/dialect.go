package dao

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

type catalog int

const (
	catalogInformationSchema catalog = iota
	catalogSQLitePragma
)

// Dialect captures the handful of SQL differences the engine cares about:
// placeholder style, pagination syntax, generated key retrieval and the
// catalog used for table introspection.
type Dialect struct {
	name      string
	bindType  int
	returning bool
	// unbounded is the LIMIT literal used when only an offset is given.
	// Empty means the dialect accepts a bare OFFSET.
	unbounded string
	fetch     bool
	catalog   catalog
}

var (
	Postgres = Dialect{name: "postgres", bindType: sqlx.DOLLAR, returning: true}
	MySQL    = Dialect{name: "mysql", bindType: sqlx.QUESTION, unbounded: "18446744073709551615"}
	SQLite   = Dialect{name: "sqlite3", bindType: sqlx.QUESTION, unbounded: "-1", catalog: catalogSQLitePragma}
	// SQLServer paginates with OFFSET ... FETCH and retrieves keys via OUTPUT.
	SQLServer = Dialect{name: "sqlserver", bindType: sqlx.AT, returning: true, fetch: true}
	// Generic leaves placeholders untouched and uses LIMIT/OFFSET.
	Generic = Dialect{name: "generic", bindType: sqlx.QUESTION}
)

// DialectFor picks the dialect matching a database/sql driver name.
func DialectFor(driverName string) Dialect {
	switch strings.ToLower(driverName) {
	case "postgres", "pgx", "pq-timeouts", "cloudsqlpostgres", "nrpostgres", "cockroach":
		return Postgres
	case "mysql", "nrmysql":
		return MySQL
	case "sqlite3", "sqlite", "nrsqlite3":
		return SQLite
	case "sqlserver", "mssql", "azuresql":
		return SQLServer
	default:
		return Generic
	}
}

func (d Dialect) Name() string {
	return d.name
}

// Rebind rewrites `?` placeholders into the dialect's bind style.
func (d Dialect) Rebind(query string) string {
	return sqlx.Rebind(d.bindType, query)
}

// ReturnsKeys reports whether generated keys come back as a result set
// (RETURNING / OUTPUT) rather than through LastInsertId.
func (d Dialect) ReturnsKeys() bool {
	return d.returning
}

// Paginate appends the dialect's offset/limit clause to query. Nil bounds
// are left out. A query that already carries its own row bounds is wrapped
// in a derived table first.
func (d Dialect) Paginate(query string, offset, limit *int) string {
	if offset == nil && limit == nil {
		return query
	}
	q := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(query), ";"))
	words := topLevelWords(q)
	if d.bounded(words) {
		q = "SELECT * FROM (" + q + ") _p"
		words = topLevelWords(q)
	}

	if d.fetch {
		if !hasOrderBy(words) {
			q += " ORDER BY (SELECT NULL)"
		}
		off := 0
		if offset != nil {
			off = *offset
		}
		q += fmt.Sprintf(" OFFSET %d ROWS", off)
		if limit != nil {
			q += fmt.Sprintf(" FETCH NEXT %d ROWS ONLY", *limit)
		}
		return q
	}

	switch {
	case limit != nil:
		q += fmt.Sprintf(" LIMIT %d", *limit)
	case d.unbounded != "":
		q += " LIMIT " + d.unbounded
	}
	if offset != nil {
		q += fmt.Sprintf(" OFFSET %d", *offset)
	}
	return q
}

// bounded reports whether the top-level words already limit the rows.
func (d Dialect) bounded(words []word) bool {
	for _, w := range words {
		switch w.text {
		case "LIMIT", "OFFSET", "FETCH":
			return true
		case "TOP":
			if d.fetch {
				return true
			}
		}
	}
	return false
}

func hasOrderBy(words []word) bool {
	for i := 0; i+1 < len(words); i++ {
		if words[i].text == "ORDER" && words[i+1].text == "BY" {
			return true
		}
	}
	return false
}

func (d Dialect) columnsQuery(hasSchema bool) string {
	if d.catalog == catalogSQLitePragma {
		if hasSchema {
			return "SELECT name FROM pragma_table_info(?, ?) ORDER BY cid"
		}
		return "SELECT name FROM pragma_table_info(?) ORDER BY cid"
	}
	q := "SELECT column_name FROM information_schema.columns WHERE table_name = ?"
	if hasSchema {
		q += " AND table_schema = ?"
	}
	return q + " ORDER BY ordinal_position"
}

func (d Dialect) primaryKeyQuery(hasSchema bool) string {
	if d.catalog == catalogSQLitePragma {
		if hasSchema {
			return "SELECT name FROM pragma_table_info(?, ?) WHERE pk > 0 ORDER BY pk"
		}
		return "SELECT name FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk"
	}
	q := "SELECT kcu.column_name FROM information_schema.table_constraints tc" +
		" JOIN information_schema.key_column_usage kcu" +
		" ON tc.constraint_name = kcu.constraint_name" +
		" AND tc.table_schema = kcu.table_schema" +
		" AND tc.table_name = kcu.table_name" +
		" WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_name = ?"
	if hasSchema {
		q += " AND tc.table_schema = ?"
	}
	return q + " ORDER BY kcu.ordinal_position"
}
