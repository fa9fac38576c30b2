// File: internal/core/connection.go
package core

import (
	"context"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Connect opens a pool for driver and checks it with a ping.
func Connect(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	dsn, err := NormalizeDSN(driver, dsn)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s database", driver)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "pinging %s database", driver)
	}
	return db, nil
}

// NormalizeDSN prepares dsn for driver. Postgres URLs without an sslmode get
// sslmode=disable; MySQL DSNs lose any mysql:// prefix, always parse
// times and report matched rather than changed rows.
func NormalizeDSN(driver, dsn string) (string, error) {
	if dsn == "" {
		return "", errors.New("DSN is empty")
	}
	switch driver {
	case "postgres":
		if isPostgresURL(dsn) && !strings.Contains(dsn, "sslmode=") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn = dsn + sep + "sslmode=disable"
		}
	case "mysql":
		cfg, err := mysql.ParseDSN(strings.TrimPrefix(dsn, "mysql://"))
		if err != nil {
			return "", errors.Wrap(err, "parsing mysql DSN")
		}
		cfg.ParseTime = true
		cfg.ClientFoundRows = true
		dsn = cfg.FormatDSN()
	}
	return dsn, nil
}

func isPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// DriverFor guesses the database/sql driver name from a DSN's scheme.
// Empty means the scheme was not recognised.
func DriverFor(dsn string) string {
	switch {
	case isPostgresURL(dsn):
		return "postgres"
	case strings.HasPrefix(dsn, "mysql://"):
		return "mysql"
	case strings.HasPrefix(dsn, "sqlserver://"):
		return "sqlserver"
	case strings.HasPrefix(dsn, "file:"), strings.HasSuffix(dsn, ".db"), strings.HasSuffix(dsn, ".sqlite"), dsn == ":memory:":
		return "sqlite3"
	}
	return ""
}

func Close(db *sqlx.DB) error {
	return db.Close()
}
