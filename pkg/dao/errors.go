package dao

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNoSource is returned when a DAO is built without a Source.
var ErrNoSource = errors.New("dao: no executor source")

// ExecutionError wraps any failure from sending SQL or reading its results.
type ExecutionError struct {
	SQL    string
	Params []any
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute %q %v: %v", e.SQL, e.Params, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func execError(sql string, params []any, err error) error {
	if err == nil {
		return nil
	}
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return err
	}
	return &ExecutionError{SQL: sql, Params: params, Err: errors.WithStack(err)}
}
