package dao

import (
	"bytes"
	"database/sql"
	"strings"

	"github.com/TechXTT/fluentdao/pkg/internal/typeconv"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Get looks a column up ignoring case. An exact match wins over a folded one.
func (r Row) Get(column string) (any, bool) {
	if v, ok := r[column]; ok {
		return v, true
	}
	for k, v := range r {
		if strings.EqualFold(k, column) {
			return v, true
		}
	}
	return nil, false
}

// RowHandler is called once per row; returning false stops the scan.
type RowHandler func(Row) bool

// Stream is the value of a binary column. It is read like a file instead of
// being handed out as a byte slice.
type Stream struct {
	*bytes.Reader
	data []byte
}

func NewStream(b []byte) *Stream {
	return &Stream{Reader: bytes.NewReader(b), data: b}
}

// Bytes returns a copy of the whole value regardless of the read position.
func (s *Stream) Bytes() []byte {
	return append([]byte{}, s.data...)
}

type columnKind int

const (
	kindUnknown columnKind = iota
	kindBinary
	kindOther
)

func columnKinds(rows *sql.Rows, n int) []columnKind {
	kinds := make([]columnKind, n)
	types, err := rows.ColumnTypes()
	if err != nil || len(types) != n {
		return kinds
	}
	for i, ct := range types {
		name := ct.DatabaseTypeName()
		switch {
		case typeconv.IsBinary(name):
			kinds[i] = kindBinary
		case typeconv.IsKnown(name):
			kinds[i] = kindOther
		}
	}
	return kinds
}

func columnValue(v any, kind columnKind) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	if kind == kindOther {
		return string(b)
	}
	return NewStream(b)
}

// scanRows turns every row of rows into a Row and hands it to fn until fn
// returns false or an error. The caller owns closing rows.
func scanRows(rows *sql.Rows, fn func(Row) (bool, error)) error {
	return scanValues(rows, func(cols []string, vals []any) (bool, error) {
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		return fn(row)
	})
}

// scanValues is scanRows by column position, so duplicate column names
// keep their own values.
func scanValues(rows *sql.Rows, fn func(cols []string, vals []any) (bool, error)) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	kinds := columnKinds(rows, len(cols))

	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		for i := range vals {
			vals[i] = columnValue(vals[i], kinds[i])
		}
		more, err := fn(cols, vals)
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return rows.Err()
}
