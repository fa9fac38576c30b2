package typeconv

import "strings"

// CanonicalType normalizes driver database type names for comparison.
func CanonicalType(typ string) string {
	t := strings.ToUpper(strings.TrimSpace(typ))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	switch t {
	case "INT", "INT2", "INT4", "INT8", "INTEGER", "SMALLINT", "BIGINT", "TINYINT", "MEDIUMINT":
		return "INTEGER"
	case "BOOL", "BOOLEAN", "BIT":
		return "BOOLEAN"
	case "TEXT", "VARCHAR", "CHAR", "BPCHAR", "NVARCHAR", "NCHAR", "CHARACTER VARYING", "CLOB", "NTEXT":
		return "TEXT"
	case "REAL", "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "DOUBLE PRECISION":
		return "REAL"
	case "NUMERIC", "DECIMAL", "MONEY":
		return "NUMERIC"
	case "DATE":
		return "DATE"
	case "TIMESTAMP", "TIMESTAMPTZ", "DATETIME", "DATETIME2", "SMALLDATETIME", "DATETIMEOFFSET":
		return "TIMESTAMP"
	case "UUID", "UNIQUEIDENTIFIER":
		return "UUID"
	case "BYTEA", "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB", "BINARY", "VARBINARY", "IMAGE":
		return "BINARY"
	default:
		return t
	}
}

// IsBinary reports whether a database type name holds raw bytes.
func IsBinary(typ string) bool {
	return CanonicalType(typ) == "BINARY"
}

// IsKnown reports whether the driver reported a type name at all.
func IsKnown(typ string) bool {
	return strings.TrimSpace(typ) != ""
}
