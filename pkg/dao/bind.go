package dao

import (
	"database/sql/driver"
	"io"
	"time"

	"github.com/pkg/errors"
)

// bindParams applies the binding policy to every positional parameter:
// times bind as timestamps, readers (files, streams) are drained and bound
// as binary, everything else passes through.
func bindParams(params []any) ([]any, error) {
	if len(params) == 0 {
		return nil, nil
	}
	out := make([]any, len(params))
	for i, p := range params {
		v, err := bindValue(p)
		if err != nil {
			return nil, errors.Wrapf(err, "binding parameter %d", i+1)
		}
		out[i] = v
	}
	return out, nil
}

func bindValue(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case driver.Valuer:
		return x, nil
	case time.Time:
		return x, nil
	case *time.Time:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	case *Stream:
		if x == nil {
			return nil, nil
		}
		return x.Bytes(), nil
	case io.Reader:
		b, err := io.ReadAll(x)
		if err != nil {
			return nil, errors.Wrap(err, "reading binary parameter")
		}
		if b == nil {
			b = []byte{}
		}
		return b, nil
	default:
		return v, nil
	}
}
