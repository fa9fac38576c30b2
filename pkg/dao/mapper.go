package dao

import (
	"database/sql"
	"reflect"
	"strings"

	"github.com/jmoiron/sqlx/reflectx"
	"github.com/pkg/errors"
)

// fieldMapper matches columns to struct fields by lower-cased field name or
// `db` tag, so mapping is case-insensitive on both sides.
var fieldMapper = reflectx.NewMapperTagFunc("db", strings.ToLower, strings.ToLower)

var (
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	streamType  = reflect.TypeOf((*Stream)(nil))
)

// MapRow copies row onto a new T. T is a struct or a pointer to one.
// Columns without a field are ignored and fields without a column keep
// their zero value.
func MapRow[T any](row Row) (T, error) {
	var out T
	err := mapValue(row, reflect.ValueOf(&out).Elem())
	return out, err
}

// MapRowInto is MapRow for a destination only known at run time. dest is a
// pointer to a struct or to a struct pointer.
func MapRowInto(row Row, dest any) error {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return errors.Errorf("dao: cannot map a row onto %T", dest)
	}
	return mapValue(row, v.Elem())
}

func mapValue(row Row, v reflect.Value) error {
	target := v
	if v.Kind() == reflect.Ptr {
		target = reflect.New(v.Type().Elem())
		v.Set(target)
		target = target.Elem()
	}
	if target.Kind() != reflect.Struct {
		return errors.Errorf("dao: cannot map a row onto %s", v.Type())
	}

	sm := fieldMapper.TypeMap(target.Type())
	for col, val := range row {
		fi := sm.GetByPath(strings.ToLower(col))
		if fi == nil {
			continue
		}
		f := reflectx.FieldByIndexes(target, fi.Index)
		if err := assign(f, val); err != nil {
			return errors.Wrapf(err, "mapping column %q onto field %s", col, fi.Field.Name)
		}
	}
	return nil
}

func assign(f reflect.Value, val any) error {
	if val == nil {
		return nil
	}
	if f.CanAddr() && f.Addr().Type().Implements(scannerType) {
		if s, ok := val.(*Stream); ok {
			val = s.Bytes()
		}
		return f.Addr().Interface().(sql.Scanner).Scan(val)
	}

	if s, ok := val.(*Stream); ok {
		if streamType.AssignableTo(f.Type()) {
			f.Set(reflect.ValueOf(NewStream(s.data)))
			return nil
		}
		val = s.Bytes()
	}

	rv := reflect.ValueOf(val)
	if rv.Type().AssignableTo(f.Type()) {
		f.Set(rv)
		return nil
	}
	if f.Kind() == reflect.Ptr {
		elem := reflect.New(f.Type().Elem())
		if err := assign(elem.Elem(), val); err != nil {
			return err
		}
		f.Set(elem)
		return nil
	}
	if f.Kind() == reflect.Bool && isNumber(rv.Kind()) {
		f.SetBool(!rv.IsZero())
		return nil
	}
	if convertible(rv, f.Type()) {
		f.Set(rv.Convert(f.Type()))
		return nil
	}
	return errors.Errorf("cannot assign %T to %s", val, f.Type())
}

func convertible(v reflect.Value, to reflect.Type) bool {
	if !v.Type().ConvertibleTo(to) {
		return false
	}
	from := v.Kind()
	switch {
	case isNumber(from) && isNumber(to.Kind()):
		return true
	case isText(v.Type()) && isText(to):
		return true
	case from == to.Kind() && from != reflect.String:
		return true
	case from == reflect.String && to.Kind() == reflect.String:
		return true
	}
	return false
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isText(t reflect.Type) bool {
	return t.Kind() == reflect.String || (t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8)
}
