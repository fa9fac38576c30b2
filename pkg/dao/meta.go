package dao

import (
	"context"
	"strings"
)

// SplitTable splits an optional `schema.table` name on its first dot. The
// schema is empty when name has no dot.
func SplitTable(name string) (schema, table string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// ColumnsOf lists the columns of table in ordinal order, lower-cased.
func (d *DAO) ColumnsOf(ctx context.Context, table string) ([]string, error) {
	schema, name := SplitTable(table)
	return d.catalogNames(ctx, d.dialect.columnsQuery(schema != ""), schema, name)
}

// PrimaryKeyOf lists the primary key columns of table in key order,
// lower-cased.
func (d *DAO) PrimaryKeyOf(ctx context.Context, table string) ([]string, error) {
	schema, name := SplitTable(table)
	return d.catalogNames(ctx, d.dialect.primaryKeyQuery(schema != ""), schema, name)
}

func (d *DAO) catalogNames(ctx context.Context, query, schema, table string) ([]string, error) {
	params := []any{strings.ToLower(table)}
	if schema != "" {
		params = append(params, schema)
	}

	var names []string
	err := d.query(ctx, "catalog", query, params, func(r Row) (bool, error) {
		for _, v := range r {
			names = append(names, strings.ToLower(asString(v)))
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case *Stream:
		return string(x.Bytes())
	default:
		return ""
	}
}
